package kbench

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, uint64(DefaultWarmupIters), cfg.WarmupIters())
	assert.Equal(t, uint64(DefaultBenchIters), cfg.BenchIters())
	assert.Zero(t, cfg.ROIMicros())
	assert.Zero(t, cfg.WarmupMicros())
}

func TestROIAccumulation(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.IncrementROIMicros(1.5))
	require.NoError(t, cfg.IncrementROIMicros(2.5))
	assert.Equal(t, 4.0, cfg.ROIMicros())

	require.NoError(t, cfg.IncrementROI(3*time.Microsecond))
	assert.Equal(t, 7.0, cfg.ROIMicros())

	cfg.ResetROI()
	assert.Equal(t, 0.0, cfg.ROIMicros())

	require.NoError(t, cfg.SetROI(1500*time.Nanosecond))
	assert.Equal(t, 1.5, cfg.ROIMicros())

	require.NoError(t, cfg.SetROIBetween(epoch, epoch.Add(2*time.Millisecond)))
	assert.Equal(t, 2000.0, cfg.ROIMicros())
}

func TestWarmupAccumulation(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.IncrementWarmupMicros(1))
	require.NoError(t, cfg.IncrementWarmup(time.Microsecond))
	assert.Equal(t, 2.0, cfg.WarmupMicros())
	assert.Zero(t, cfg.ROIMicros(), "warmup must never reach the ROI")

	require.NoError(t, cfg.SetWarmupMicros(5))
	assert.Equal(t, 5.0, cfg.WarmupMicros())

	cfg.ResetWarmup()
	assert.Zero(t, cfg.WarmupMicros())
}

func TestNegativeDurationsRefused(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.SetROIMicros(10))

	assert.ErrorIs(t, cfg.IncrementROIMicros(-1), ErrNegativeDuration)
	assert.ErrorIs(t, cfg.SetROIMicros(math.NaN()), ErrNegativeDuration)
	assert.ErrorIs(t, cfg.IncrementROI(-time.Second), ErrNegativeDuration)
	assert.ErrorIs(t, cfg.IncrementWarmupMicros(-1), ErrNegativeDuration)
	assert.Equal(t, 10.0, cfg.ROIMicros())
}

func TestSetBetweenRejectsBadTimestamps(t *testing.T) {
	cfg := NewConfig()

	err := cfg.SetROIBetween(epoch, epoch.Add(-time.Nanosecond))
	assert.ErrorIs(t, err, ErrClockSkew)
	assert.True(t, IsTimingError(err))

	assert.ErrorIs(t, cfg.SetWarmupBetween(time.Time{}, epoch), ErrClockUnavailable)
}

func TestDefaultTolerances(t *testing.T) {
	cfg := NewConfig()
	for _, p := range FloatingPrecisions() {
		t.Run(p.String(), func(t *testing.T) {
			want := p.Epsilon() * DefaultToleranceScale
			assert.Equal(t, want, cfg.Tolerance(p))
			// repeated reads are stable
			assert.Equal(t, cfg.Tolerance(p), cfg.Tolerance(p))
		})
	}
	assert.Zero(t, cfg.Tolerance(PrecExact))
	assert.Zero(t, cfg.Tolerance(Precision(42)))
}

func TestSetAllTolerancesConvertsPerPrecision(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.SetAllTolerances(0.1))

	assert.Equal(t, float64(float16.Fromfloat32(0.1).Float32()), cfg.Tolerance(PrecFloat16))
	assert.Equal(t, float64(ToBFloat16(0.1).Float32()), cfg.Tolerance(PrecBFloat16))
	assert.Equal(t, float64(float32(0.1)), cfg.Tolerance(PrecFloat32))
	assert.Equal(t, 0.1, cfg.Tolerance(PrecFloat64))
	assert.Equal(t, 0.1, cfg.Tolerance(PrecExtended))
	assert.Zero(t, cfg.Tolerance(PrecExact))

	ext, _ := cfg.ExtendedTolerance().Float64()
	assert.Equal(t, 0.1, ext)
}

func TestSetTolerance(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.SetTolerance(PrecFloat32, 1e-3))
	assert.Equal(t, float64(float32(1e-3)), cfg.Tolerance(PrecFloat32))
	assert.Equal(t, PrecFloat64.Epsilon()*DefaultToleranceScale, cfg.Tolerance(PrecFloat64),
		"other precisions are untouched")

	assert.True(t, IsConfigError(cfg.SetTolerance(PrecExact, 1)))
	assert.ErrorIs(t, cfg.SetTolerance(PrecFloat64, -1), ErrInvalidTolerance)
	assert.ErrorIs(t, cfg.SetTolerance(PrecFloat64, math.NaN()), ErrInvalidTolerance)
	assert.ErrorIs(t, cfg.SetAllTolerances(-0.5), ErrInvalidTolerance)
}

func TestToleranceFor(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, cfg.Tolerance(PrecFloat32), ToleranceFor[[]float32](cfg))
	assert.Equal(t, cfg.Tolerance(PrecFloat64), ToleranceFor[float64](cfg))
	assert.Equal(t, cfg.Tolerance(PrecFloat16), ToleranceFor[float16.Float16](cfg))
	assert.Zero(t, ToleranceFor[[]int](cfg))
	assert.Zero(t, ToleranceFor[struct{}](cfg))
}

func TestTolerancesSnapshot(t *testing.T) {
	cfg := NewConfig()
	snap := cfg.Tolerances()
	assert.Len(t, snap, len(FloatingPrecisions()))

	require.NoError(t, cfg.SetAllTolerances(1))
	assert.Equal(t, PrecFloat64.Epsilon()*DefaultToleranceScale, snap[PrecFloat64],
		"snapshot does not follow later changes")
}

func TestConfigsAreIndependent(t *testing.T) {
	a, b := NewConfig(), NewConfig()
	require.NoError(t, a.IncrementROIMicros(3))
	a.SetBenchIters(7)
	require.NoError(t, a.SetAllTolerances(0.5))

	assert.Zero(t, b.ROIMicros())
	assert.Equal(t, uint64(DefaultBenchIters), b.BenchIters())
	assert.Equal(t, PrecFloat32.Epsilon()*DefaultToleranceScale, b.Tolerance(PrecFloat32))
}

func TestState(t *testing.T) {
	st := NewState()
	assert.False(t, st.UsingPlugin())
	assert.Empty(t, st.ImplName())

	st.SetImplName("cpu serial")
	st.SetUsingPlugin(true)
	assert.Equal(t, "cpu serial", st.ImplName())
	assert.True(t, st.UsingPlugin())
}
