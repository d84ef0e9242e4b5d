package kbench

import (
	"math"
)

// BFloat16 represents a 16-bit brain floating point number
// Format: 1 sign bit, 8 exponent bits, 7 mantissa bits
type BFloat16 uint16

// ToBFloat16 converts float32 to BFloat16 with round-to-nearest-even
func ToBFloat16(f float32) BFloat16 {
	bits := math.Float32bits(f)

	// Keep NaN quiet; rounding could carry a NaN payload into Inf
	if f != f {
		return BFloat16(bits>>16 | 0x0040)
	}

	lsb := (bits >> 16) & 1
	bits += 0x7FFF + lsb

	return BFloat16(bits >> 16)
}

// Float32 converts BFloat16 to float32
func (b BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// IsNaN reports whether b is a NaN
func (b BFloat16) IsNaN() bool {
	return b&0x7F80 == 0x7F80 && b&0x007F != 0
}

// BFloat16s converts a float32 slice to BFloat16
func BFloat16s(src []float32) []BFloat16 {
	dst := make([]BFloat16, len(src))
	for i, v := range src {
		dst[i] = ToBFloat16(v)
	}
	return dst
}
