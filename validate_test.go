package kbench

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestCompareScalarInclusiveBound(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.SetAllTolerances(0.5))

	tests := []struct {
		name      string
		ref, cand float64
		pass      bool
	}{
		{"equal", 1, 1, true},
		{"at bound", 1, 1.5, true},
		{"at bound below", 1, 0.5, true},
		{"just over", 1, math.Nextafter(1.5, 2), false},
		{"far", 1, 3, false},
		{"equal +inf", math.Inf(1), math.Inf(1), true},
		{"equal -inf", math.Inf(-1), math.Inf(-1), true},
		{"opposite inf", math.Inf(1), math.Inf(-1), false},
		{"inf vs finite", math.Inf(1), 1, false},
		{"nan candidate", 1, math.NaN(), false},
		{"nan both", math.NaN(), math.NaN(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CompareScalar(cfg, tt.ref, tt.cand)
			assert.Equal(t, tt.pass, v.Passed(), v.String())
			assert.Equal(t, 1, v.Compared)
			assert.Equal(t, PrecFloat64, v.Precision)
		})
	}
}

func TestCompareScalarFloat32(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.SetTolerance(PrecFloat32, 0.25))

	assert.True(t, CompareScalar[float32](cfg, 2, 2.25).Passed())
	assert.False(t, CompareScalar[float32](cfg, 2, 2.5).Passed())
	assert.Equal(t, PrecFloat32, CompareScalar[float32](cfg, 0, 0).Precision)
}

func TestNaNMismatchStatistics(t *testing.T) {
	v := CompareScalar(NewConfig(), 1.0, math.NaN())
	require.False(t, v.Passed())
	assert.Equal(t, 0, v.FirstMismatch)
	assert.True(t, math.IsInf(v.MaxAbsErr, 1))
	assert.Equal(t, "1", v.Expected)
	assert.Equal(t, "NaN", v.Actual)
}

func TestCompareSliceSingleMismatch(t *testing.T) {
	v := CompareSlice(NewConfig(), []float64{1, 2, 3, 4}, []float64{1, 2, 3, 5})

	assert.False(t, v.Passed())
	assert.Equal(t, 4, v.Compared)
	assert.Equal(t, 1, v.Mismatches)
	assert.Equal(t, 3, v.FirstMismatch)
	assert.Equal(t, []int{3}, v.Indices)
	assert.Equal(t, "4", v.Expected)
	assert.Equal(t, "5", v.Actual)
	assert.Equal(t, 1.0, v.MaxAbsErr)
	assert.Equal(t, 1.0, v.MeanAbsErr())
	assert.Contains(t, v.String(), "First mismatch at index 3")
}

func TestCompareSlicePass(t *testing.T) {
	v := CompareSlice(NewConfig(), []float32{1, 2, 3}, []float32{1, 2, 3})
	assert.True(t, v.Passed())
	assert.Equal(t, -1, v.FirstMismatch)
	assert.Empty(t, v.Indices)
	assert.Zero(t, v.MeanAbsErr())
	assert.Contains(t, v.String(), "PASS")
}

func TestCompareSliceLengthMismatch(t *testing.T) {
	v := CompareSlice(NewConfig(), []float64{1, 2, 3}, []float64{1, 9})

	assert.False(t, v.Passed())
	assert.ErrorIs(t, v.Err, ErrLengthMismatch)
	assert.True(t, IsValidationError(v.Err))
	assert.Equal(t, 2, v.Compared, "common prefix is still compared")
	assert.Equal(t, 1, v.FirstMismatch)
}

func TestMismatchIndicesAreBounded(t *testing.T) {
	ref := make([]float64, 100)
	cand := make([]float64, 100)
	for i := range cand {
		cand[i] = float64(i + 1)
	}
	v := CompareSlice(NewConfig(), ref, cand)

	assert.Equal(t, 100, v.Mismatches)
	assert.Len(t, v.Indices, MaxReportedMismatches)
	assert.Equal(t, 0, v.Indices[0])
	assert.Equal(t, 100.0, v.MaxAbsErr)
	assert.Equal(t, 5050.0, v.TotalAbsErr)
	assert.Equal(t, 50.5, v.MeanAbsErr())
}

func TestCompareFloat16(t *testing.T) {
	cfg := NewConfig()
	one := float16.Fromfloat32(1)
	near := float16.Fromfloat32(1 + 0x1p-10)
	far := float16.Fromfloat32(3)

	assert.True(t, CompareFloat16(cfg, one, near).Passed())
	assert.False(t, CompareFloat16(cfg, one, far).Passed())

	v := CompareFloat16Slice(cfg, []float16.Float16{one, one}, []float16.Float16{one, far})
	assert.Equal(t, 1, v.FirstMismatch)
	assert.Equal(t, PrecFloat16, v.Precision)
}

func TestCompareBFloat16(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, CompareBFloat16(cfg, ToBFloat16(1), ToBFloat16(1)).Passed())

	v := CompareBFloat16Slice(cfg, BFloat16s([]float32{1, 2}), BFloat16s([]float32{1, 20}))
	assert.False(t, v.Passed())
	assert.Equal(t, 1, v.FirstMismatch)
	assert.Equal(t, 18.0, v.MaxAbsErr)
}

func extended(f float64) *big.Float {
	return new(big.Float).SetPrec(ExtendedMantissa).SetFloat64(f)
}

func TestCompareExtended(t *testing.T) {
	cfg := NewConfig()

	tiny := new(big.Float).SetPrec(ExtendedMantissa).Add(extended(1), extended(0x1p-60))
	assert.True(t, CompareExtended(cfg, extended(1), tiny).Passed())

	large := new(big.Float).SetPrec(ExtendedMantissa).Add(extended(1), extended(0x1p-40))
	assert.False(t, CompareExtended(cfg, extended(1), large).Passed())

	inf := new(big.Float).SetInf(false)
	assert.True(t, CompareExtended(cfg, inf, new(big.Float).SetInf(false)).Passed())
	assert.False(t, CompareExtended(cfg, inf, extended(1)).Passed())

	v := CompareExtended(cfg, nil, extended(1))
	assert.True(t, IsValidationError(v.Err))

	v = CompareExtendedSlice(cfg, []*big.Float{extended(1)}, []*big.Float{extended(1), extended(2)})
	assert.ErrorIs(t, v.Err, ErrLengthMismatch)
}

func TestCompareExtendedJustOverTolerance(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.SetTolerance(PrecExtended, 0x1p-20))

	// exceeds the tolerance by less than a float64 ulp of the difference
	over := new(big.Float).SetPrec(ExtendedMantissa).Add(extended(0x1p-20), extended(0x1p-80))
	v := CompareExtended(cfg, extended(0), over)
	assert.False(t, v.Passed())
	assert.Greater(t, v.MaxAbsErr, v.Tolerance)
}

func TestCompareEqual(t *testing.T) {
	assert.True(t, CompareEqual(nil, "a", "a").Passed())
	assert.False(t, CompareEqual(nil, 3, 4).Passed())

	v := CompareEqualSlice(nil, []int{1, 2, 3}, []int{1, 0, 3})
	assert.Equal(t, PrecExact, v.Precision)
	assert.Equal(t, 1, v.FirstMismatch)
	assert.Equal(t, "2", v.Expected)
	assert.Equal(t, "0", v.Actual)
}

func TestCompareConverted(t *testing.T) {
	cfg := NewConfig()
	ref := []float64{1}
	cand := []float32{1 + 0x1p-23}

	toRef := CompareConverted(cfg, ref, cand, ToReference)
	assert.Equal(t, PrecFloat64, toRef.Precision)
	assert.False(t, toRef.Passed(), "float64 tolerance applies")

	toCand := CompareConverted(cfg, ref, cand, ToCandidate)
	assert.Equal(t, PrecFloat32, toCand.Precision)
	assert.True(t, toCand.Passed(), "float32 tolerance applies")

	bad := CompareConverted(cfg, ref, cand, Conversion(9))
	assert.True(t, IsValidationError(bad.Err))
}

func TestCompareAny(t *testing.T) {
	cfg := NewConfig()

	v := CompareAny(cfg, float32(1), float64(1))
	assert.False(t, v.Passed())
	assert.ErrorIs(t, v.Err, ErrPrecisionMismatch)

	v = CompareAny(cfg, []float32{1}, []float64{1})
	assert.ErrorIs(t, v.Err, ErrPrecisionMismatch)

	assert.True(t, CompareAny(cfg, []float64{1, 2}, []float64{1, 2}).Passed())
	assert.True(t, CompareAny(cfg, []int{1, 2}, []int{1, 2}).Passed())
	assert.False(t, CompareAny(cfg, "x", "y").Passed())

	v = CompareAny(cfg, map[string]int{}, map[string]int{})
	assert.True(t, IsValidationError(v.Err))

	v = CompareAny(cfg, struct{}{}, struct{}{})
	assert.True(t, v.Passed())
	assert.Zero(t, v.Compared)
}

func TestAutoComparator(t *testing.T) {
	cmp, err := AutoComparator[[]float32]()
	require.NoError(t, err)
	assert.True(t, cmp(NewConfig(), []float32{1}, []float32{1}).Passed())

	cmpInt, err := AutoComparator[[]int]()
	require.NoError(t, err)
	assert.False(t, cmpInt(nil, []int{1}, []int{2}).Passed())

	_, err = AutoComparator[*big.Float]()
	require.NoError(t, err)

	_, err = AutoComparator[struct{ x int }]()
	assert.ErrorIs(t, err, ErrUnsupportedOutput)
	assert.True(t, IsConfigError(err))

	_, err = AutoComparator[struct{ Counts map[string]int }]()
	assert.ErrorIs(t, err, ErrUnsupportedOutput)

	none, err := AutoComparator[struct{}]()
	require.NoError(t, err)
	assert.True(t, none(NewConfig(), struct{}{}, struct{}{}).Passed())

	_, err = AutoComparator[[]celsius]()
	assert.ErrorIs(t, err, ErrUnsupportedOutput, "named element types need a custom comparator")
}
