// Package kbench correctness validation of candidate outputs against the
// reference output
package kbench

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/x448/float16"
)

// MaxReportedMismatches bounds Verdict.Indices. Mismatches is always exact.
const MaxReportedMismatches = 32

// Verdict is the outcome of comparing one candidate output to the reference.
// Error statistics cover mismatching elements only.
type Verdict struct {
	Precision Precision
	Tolerance float64

	Compared      int
	Mismatches    int
	FirstMismatch int   // -1 if none
	Indices       []int // first MaxReportedMismatches mismatch positions

	// Values at FirstMismatch
	Expected string
	Actual   string

	MaxAbsErr   float64
	TotalAbsErr float64

	// Err is a structural failure: length or type mismatch, nil values
	Err error

	// Outputs holds one verdict per output when the implementation
	// produces several; the fields above then aggregate them.
	Outputs []OutputVerdict
}

func newVerdict(p Precision, tol float64) Verdict {
	return Verdict{Precision: p, Tolerance: tol, FirstMismatch: -1}
}

// Passed reports whether every element matched and the comparison was well formed
func (v Verdict) Passed() bool {
	return v.Err == nil && v.Mismatches == 0
}

// MeanAbsErr returns the mean absolute error over mismatching elements
func (v Verdict) MeanAbsErr() float64 {
	if v.Mismatches == 0 {
		return 0
	}
	return v.TotalAbsErr / float64(v.Mismatches)
}

// observe records element i. diff is NaN when either operand is NaN, which
// never satisfies the bound.
func (v *Verdict) observe(i int, diff float64, expected, actual func() string) {
	v.Compared++
	if diff <= v.Tolerance {
		return
	}
	if math.IsNaN(diff) {
		diff = math.Inf(1)
	}
	v.Mismatches++
	v.TotalAbsErr += diff
	if diff > v.MaxAbsErr {
		v.MaxAbsErr = diff
	}
	if v.FirstMismatch == -1 {
		v.FirstMismatch = i
		v.Expected = expected()
		v.Actual = actual()
	}
	if len(v.Indices) < MaxReportedMismatches {
		v.Indices = append(v.Indices, i)
	}
}

// String formats the verdict for display
func (v Verdict) String() string {
	if len(v.Outputs) > 0 {
		return v.outputsString()
	}
	if v.Passed() {
		return fmt.Sprintf("PASS: %d values match within %g (%s)", v.Compared, v.Tolerance, v.Precision)
	}
	var b strings.Builder
	if v.Err != nil {
		fmt.Fprintf(&b, "FAIL: %v", v.Err)
		if v.Mismatches == 0 {
			return b.String()
		}
		b.WriteString("; ")
	} else {
		b.WriteString("FAIL: ")
	}
	fmt.Fprintf(&b, "%d/%d values differ beyond %g (%s)\n"+
		"  First mismatch at index %d: expected %s, got %s\n"+
		"  Max absolute error: %e\n"+
		"  Mean absolute error: %e",
		v.Mismatches, v.Compared, v.Tolerance, v.Precision,
		v.FirstMismatch, v.Expected, v.Actual,
		v.MaxAbsErr, v.MeanAbsErr())
	return b.String()
}

// Comparator compares a candidate output to the reference output
type Comparator[T any] func(cfg *Config, ref, cand T) Verdict

func absDiff[T Float](r, c T) T {
	if r == c {
		return 0
	}
	d := c - r
	if d < 0 {
		d = -d
	}
	return d
}

func formatFloat(v float64) func() string {
	return func() string { return fmt.Sprintf("%g", v) }
}

func lengthMismatch(ref, cand int) error {
	return &Error{
		Type:    ErrTypeValidation,
		Op:      ErrLengthMismatch.(*Error).Op,
		Message: ErrLengthMismatch.(*Error).Message,
		Context: fmt.Sprintf("reference has %d elements, candidate has %d", ref, cand),
	}
}

func precisionMismatch(ref, cand any) error {
	return &Error{
		Type:    ErrTypeValidation,
		Op:      ErrPrecisionMismatch.(*Error).Op,
		Message: ErrPrecisionMismatch.(*Error).Message,
		Context: fmt.Sprintf("reference %T, candidate %T", ref, cand),
	}
}

// CompareScalar passes iff |cand - ref| <= tolerance, computed in T
func CompareScalar[T Float](cfg *Config, ref, cand T) Verdict {
	p := precisionOfFloat[T]()
	v := newVerdict(p, cfg.Tolerance(p))
	v.observe(0, float64(absDiff(ref, cand)), formatFloat(float64(ref)), formatFloat(float64(cand)))
	return v
}

// CompareSlice compares element-wise. Slices of different length fail with
// ErrLengthMismatch after the common prefix is compared.
func CompareSlice[T Float](cfg *Config, ref, cand []T) Verdict {
	p := precisionOfFloat[T]()
	v := newVerdict(p, cfg.Tolerance(p))
	n := min(len(ref), len(cand))
	for i := 0; i < n; i++ {
		v.observe(i, float64(absDiff(ref[i], cand[i])), formatFloat(float64(ref[i])), formatFloat(float64(cand[i])))
	}
	if len(ref) != len(cand) {
		v.Err = lengthMismatch(len(ref), len(cand))
	}
	return v
}

// CompareFloat16 compares two binary16 values; the difference is taken in float64
func CompareFloat16(cfg *Config, ref, cand float16.Float16) Verdict {
	v := newVerdict(PrecFloat16, cfg.Tolerance(PrecFloat16))
	r, c := float64(ref.Float32()), float64(cand.Float32())
	v.observe(0, absDiff(r, c), formatFloat(r), formatFloat(c))
	return v
}

// CompareFloat16Slice compares binary16 slices element-wise
func CompareFloat16Slice(cfg *Config, ref, cand []float16.Float16) Verdict {
	v := newVerdict(PrecFloat16, cfg.Tolerance(PrecFloat16))
	n := min(len(ref), len(cand))
	for i := 0; i < n; i++ {
		r, c := float64(ref[i].Float32()), float64(cand[i].Float32())
		v.observe(i, absDiff(r, c), formatFloat(r), formatFloat(c))
	}
	if len(ref) != len(cand) {
		v.Err = lengthMismatch(len(ref), len(cand))
	}
	return v
}

// CompareBFloat16 compares two bfloat16 values
func CompareBFloat16(cfg *Config, ref, cand BFloat16) Verdict {
	v := newVerdict(PrecBFloat16, cfg.Tolerance(PrecBFloat16))
	r, c := float64(ref.Float32()), float64(cand.Float32())
	v.observe(0, absDiff(r, c), formatFloat(r), formatFloat(c))
	return v
}

// CompareBFloat16Slice compares bfloat16 slices element-wise
func CompareBFloat16Slice(cfg *Config, ref, cand []BFloat16) Verdict {
	v := newVerdict(PrecBFloat16, cfg.Tolerance(PrecBFloat16))
	n := min(len(ref), len(cand))
	for i := 0; i < n; i++ {
		r, c := float64(ref[i].Float32()), float64(cand[i].Float32())
		v.observe(i, absDiff(r, c), formatFloat(r), formatFloat(c))
	}
	if len(ref) != len(cand) {
		v.Err = lengthMismatch(len(ref), len(cand))
	}
	return v
}

// extendedDiff returns |c - r| at PrecExtended width. Equal infinities
// differ by 0; any other infinite operand differs by +Inf.
func extendedDiff(r, c *big.Float) *big.Float {
	d := new(big.Float).SetPrec(ExtendedMantissa)
	if r.IsInf() || c.IsInf() {
		if r.Cmp(c) == 0 {
			return d
		}
		return d.SetInf(false)
	}
	d.Sub(c, r)
	return d.Abs(d)
}

func (v *Verdict) observeExtended(i int, tol, r, c *big.Float) {
	d := extendedDiff(r, c)
	diff, _ := d.Float64()
	if d.Cmp(tol) <= 0 {
		diff = 0
	} else if diff <= v.Tolerance {
		// d exceeds tol but rounds onto it in float64; keep it a mismatch
		diff = math.Nextafter(v.Tolerance, math.Inf(1))
	}
	v.observe(i, diff,
		func() string { return r.Text('g', 20) },
		func() string { return c.Text('g', 20) })
}

// CompareExtended compares two extended-precision values
func CompareExtended(cfg *Config, ref, cand *big.Float) Verdict {
	v := newVerdict(PrecExtended, cfg.Tolerance(PrecExtended))
	if ref == nil || cand == nil {
		v.Err = NewValidationError("CompareExtended", "nil value", fmt.Sprintf("reference nil=%t, candidate nil=%t", ref == nil, cand == nil))
		return v
	}
	v.observeExtended(0, cfg.ExtendedTolerance(), ref, cand)
	return v
}

// CompareExtendedSlice compares extended-precision slices element-wise
func CompareExtendedSlice(cfg *Config, ref, cand []*big.Float) Verdict {
	v := newVerdict(PrecExtended, cfg.Tolerance(PrecExtended))
	tol := cfg.ExtendedTolerance()
	n := min(len(ref), len(cand))
	for i := 0; i < n; i++ {
		if ref[i] == nil || cand[i] == nil {
			v.Err = NewValidationError("CompareExtendedSlice", "nil value", fmt.Sprintf("index %d", i))
			return v
		}
		v.observeExtended(i, tol, ref[i], cand[i])
	}
	if len(ref) != len(cand) {
		v.Err = lengthMismatch(len(ref), len(cand))
	}
	return v
}

// CompareEqual compares values that have no tolerance: integers, strings, booleans
func CompareEqual[T comparable](_ *Config, ref, cand T) Verdict {
	v := newVerdict(PrecExact, 0)
	v.observe(0, exactDiff(ref, cand), formatValue(ref), formatValue(cand))
	return v
}

// CompareEqualSlice compares slices of values with no tolerance
func CompareEqualSlice[T comparable](_ *Config, ref, cand []T) Verdict {
	v := newVerdict(PrecExact, 0)
	n := min(len(ref), len(cand))
	for i := 0; i < n; i++ {
		v.observe(i, exactDiff(ref[i], cand[i]), formatValue(ref[i]), formatValue(cand[i]))
	}
	if len(ref) != len(cand) {
		v.Err = lengthMismatch(len(ref), len(cand))
	}
	return v
}

func exactDiff[T comparable](r, c T) float64 {
	if r == c {
		return 0
	}
	return 1
}

func formatValue(v any) func() string {
	return func() string { return fmt.Sprintf("%v", v) }
}

// Conversion selects which side of a mixed-precision comparison is converted
type Conversion int

const (
	// ToReference converts the candidate to the reference's type
	ToReference Conversion = iota
	// ToCandidate converts the reference to the candidate's type
	ToCandidate
)

// CompareConverted compares outputs of different floating types. The
// caller names the conversion; the target type's tolerance applies.
func CompareConverted[R, C Float](cfg *Config, ref []R, cand []C, conv Conversion) Verdict {
	switch conv {
	case ToReference:
		converted := make([]R, len(cand))
		for i, x := range cand {
			converted[i] = R(x)
		}
		return CompareSlice(cfg, ref, converted)
	case ToCandidate:
		converted := make([]C, len(ref))
		for i, x := range ref {
			converted[i] = C(x)
		}
		return CompareSlice(cfg, converted, cand)
	default:
		v := newVerdict(PrecExact, 0)
		v.Err = NewValidationError("CompareConverted", "unknown conversion", int(conv))
		return v
	}
}

// CompareAny compares dynamically typed outputs. Values of different
// dynamic types fail with ErrPrecisionMismatch; nothing is widened.
func CompareAny(cfg *Config, ref, cand any) Verdict {
	if reflect.TypeOf(ref) != reflect.TypeOf(cand) {
		v := newVerdict(PrecExact, 0)
		v.Err = precisionMismatch(ref, cand)
		return v
	}
	switch r := ref.(type) {
	case float32:
		return CompareScalar(cfg, r, cand.(float32))
	case float64:
		return CompareScalar(cfg, r, cand.(float64))
	case []float32:
		return CompareSlice(cfg, r, cand.([]float32))
	case []float64:
		return CompareSlice(cfg, r, cand.([]float64))
	case float16.Float16:
		return CompareFloat16(cfg, r, cand.(float16.Float16))
	case []float16.Float16:
		return CompareFloat16Slice(cfg, r, cand.([]float16.Float16))
	case BFloat16:
		return CompareBFloat16(cfg, r, cand.(BFloat16))
	case []BFloat16:
		return CompareBFloat16Slice(cfg, r, cand.([]BFloat16))
	case *big.Float:
		return CompareExtended(cfg, r, cand.(*big.Float))
	case []*big.Float:
		return CompareExtendedSlice(cfg, r, cand.([]*big.Float))
	case int:
		return CompareEqual(cfg, r, cand.(int))
	case int64:
		return CompareEqual(cfg, r, cand.(int64))
	case string:
		return CompareEqual(cfg, r, cand.(string))
	case bool:
		return CompareEqual(cfg, r, cand.(bool))
	case []int:
		return CompareEqualSlice(cfg, r, cand.([]int))
	case []int64:
		return CompareEqualSlice(cfg, r, cand.([]int64))
	case struct{}:
		return CompareNone(cfg, r, cand.(struct{}))
	}
	v := newVerdict(PrecExact, 0)
	v.Err = &Error{
		Type:    errUnsupportedAny.Type,
		Op:      errUnsupportedAny.Op,
		Message: errUnsupportedAny.Message,
		Context: fmt.Sprintf("%T", ref),
	}
	return v
}

var errUnsupportedAny = &Error{Type: ErrTypeValidation, Op: "CompareAny", Message: "unsupported output type"}

// CompareNone is the comparator for implementations without an output,
// used for timing-only comparisons. It always passes with nothing compared.
func CompareNone[T any](_ *Config, _, _ T) Verdict {
	return newVerdict(PrecExact, 0)
}

// AutoComparator returns the built-in comparator for T, or
// ErrUnsupportedOutput when T needs a custom one. Struct outputs are
// compared field by field (see StructComparator); struct{} means no output.
func AutoComparator[T any]() (Comparator[T], error) {
	var zero T
	var fn any
	switch any(zero).(type) {
	case float32:
		fn = CompareScalar[float32]
	case float64:
		fn = CompareScalar[float64]
	case []float32:
		fn = CompareSlice[float32]
	case []float64:
		fn = CompareSlice[float64]
	case float16.Float16:
		fn = CompareFloat16
	case []float16.Float16:
		fn = CompareFloat16Slice
	case BFloat16:
		fn = CompareBFloat16
	case []BFloat16:
		fn = CompareBFloat16Slice
	case *big.Float:
		fn = CompareExtended
	case []*big.Float:
		fn = CompareExtendedSlice
	case int:
		fn = CompareEqual[int]
	case int32:
		fn = CompareEqual[int32]
	case int64:
		fn = CompareEqual[int64]
	case uint32:
		fn = CompareEqual[uint32]
	case uint64:
		fn = CompareEqual[uint64]
	case string:
		fn = CompareEqual[string]
	case bool:
		fn = CompareEqual[bool]
	case []int:
		fn = CompareEqualSlice[int]
	case []int32:
		fn = CompareEqualSlice[int32]
	case []int64:
		fn = CompareEqualSlice[int64]
	case []string:
		fn = CompareEqualSlice[string]
	}

	if f, ok := fn.(func(*Config, T, T) Verdict); ok {
		return Comparator[T](f), nil
	}
	if reflect.TypeFor[T]().Kind() == reflect.Struct {
		return StructComparator[T]()
	}
	return nil, unsupportedOutput(fmt.Sprintf("%T", zero))
}

func unsupportedOutput(context string) error {
	return &Error{
		Type:    ErrUnsupportedOutput.(*Error).Type,
		Op:      ErrUnsupportedOutput.(*Error).Op,
		Message: ErrUnsupportedOutput.(*Error).Message,
		Context: context,
	}
}
