// Package kbench precision tags and the per-precision tolerance table
package kbench

import (
	"math/big"
	"unsafe"

	"github.com/x448/float16"
)

// Precision identifies the numeric type an output is compared in.
// Each floating precision owns one absolute tolerance in a Config.
type Precision int

const (
	// PrecFloat16 is IEEE 754 binary16
	PrecFloat16 Precision = iota
	// PrecBFloat16 is the 8-bit-exponent brain float
	PrecBFloat16
	// PrecFloat32 is IEEE 754 binary32
	PrecFloat32
	// PrecFloat64 is IEEE 754 binary64
	PrecFloat64
	// PrecExtended is a *big.Float with a 64-bit mantissa (x87 long double width)
	PrecExtended
	// PrecExact covers integers, strings and booleans; tolerance is always 0
	PrecExact

	numPrecisions = int(PrecExact)
)

// ExtendedMantissa is the mantissa width, in bits, of PrecExtended values
const ExtendedMantissa = 64

// DefaultToleranceScale multiplies a precision's epsilon to give its default tolerance
const DefaultToleranceScale = 1000

// String returns the precision name
func (p Precision) String() string {
	switch p {
	case PrecFloat16:
		return "float16"
	case PrecBFloat16:
		return "bfloat16"
	case PrecFloat32:
		return "float32"
	case PrecFloat64:
		return "float64"
	case PrecExtended:
		return "extended"
	case PrecExact:
		return "exact"
	default:
		return "unknown"
	}
}

// Epsilon returns the machine epsilon of the precision
func (p Precision) Epsilon() float64 {
	switch p {
	case PrecFloat16:
		return 0x1p-10
	case PrecBFloat16:
		return 0x1p-7
	case PrecFloat32:
		return 0x1p-23
	case PrecFloat64:
		return 0x1p-52
	case PrecExtended:
		return 0x1p-63
	default:
		return 0
	}
}

// Floating reports whether the precision carries a configurable tolerance
func (p Precision) Floating() bool {
	return p >= PrecFloat16 && p < PrecExact
}

// FloatingPrecisions lists every precision with a tolerance entry
func FloatingPrecisions() []Precision {
	return []Precision{PrecFloat16, PrecBFloat16, PrecFloat32, PrecFloat64, PrecExtended}
}

// Round converts v to the precision's representation and back to float64.
// PrecExtended is wider than float64, so the value passes through unchanged.
func (p Precision) Round(v float64) float64 {
	switch p {
	case PrecFloat16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case PrecBFloat16:
		return float64(ToBFloat16(float32(v)).Float32())
	case PrecFloat32:
		return float64(float32(v))
	default:
		return v
	}
}

// Float is the set of native floating types compared by CompareScalar and CompareSlice
type Float interface {
	~float32 | ~float64
}

// PrecisionOf maps a Go type to its precision tag.
// The second result is false for types no comparator understands.
func PrecisionOf[T any]() (Precision, bool) {
	var zero T
	switch any(zero).(type) {
	case float32, []float32:
		return PrecFloat32, true
	case float64, []float64:
		return PrecFloat64, true
	case float16.Float16, []float16.Float16:
		return PrecFloat16, true
	case BFloat16, []BFloat16:
		return PrecBFloat16, true
	case *big.Float, []*big.Float:
		return PrecExtended, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		[]int, []int8, []int16, []int32, []int64, []uint, []uint8, []uint16, []uint32, []uint64,
		string, []string, bool, []bool:
		return PrecExact, true
	}
	return PrecExact, false
}

// precisionOfFloat resolves the tag for a Float type parameter, including
// named types whose underlying type is float32 or float64.
func precisionOfFloat[T Float]() Precision {
	var zero T
	if unsafe.Sizeof(zero) == 4 {
		return PrecFloat32
	}
	return PrecFloat64
}

// extendedTolerance returns tol as a PrecExtended value
func extendedTolerance(tol float64) *big.Float {
	return new(big.Float).SetPrec(ExtendedMantissa).SetFloat64(tol)
}
