// Package kbench run configuration: iteration counts, timing accumulators
// and the tolerance table
package kbench

import (
	"math"
	"math/big"
	"time"
)

// Default iteration counts
const (
	// DefaultWarmupIters is the number of untimed iterations before measurement
	DefaultWarmupIters = 100

	// DefaultBenchIters is the number of measured iterations
	DefaultBenchIters = 100
)

// noCopy marks a struct that must not be copied after first use.
// go vet's copylocks check flags value copies of any type embedding it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Config is the run configuration shared by the timing protocol, the
// validator and the reporter. It is owned by the driver and handed around
// by pointer; it is not safe for concurrent use.
type Config struct {
	_ noCopy

	warmupIters uint64
	benchIters  uint64

	roiUS    float64
	warmupUS float64

	tolerances [numPrecisions]float64
}

// NewConfig returns a Config with default iteration counts and every
// tolerance set to its precision's epsilon times DefaultToleranceScale.
func NewConfig() *Config {
	c := &Config{
		warmupIters: DefaultWarmupIters,
		benchIters:  DefaultBenchIters,
	}
	for _, p := range FloatingPrecisions() {
		c.tolerances[p] = p.Epsilon() * DefaultToleranceScale
	}
	return c
}

// WarmupIters returns the number of warmup iterations
func (c *Config) WarmupIters() uint64 { return c.warmupIters }

// SetWarmupIters sets the number of warmup iterations
func (c *Config) SetWarmupIters(v uint64) { c.warmupIters = v }

// BenchIters returns the number of measured iterations
func (c *Config) BenchIters() uint64 { return c.benchIters }

// SetBenchIters sets the number of measured iterations
func (c *Config) SetBenchIters(v uint64) { c.benchIters = v }

// ResetROI zeroes the region-of-interest accumulator
func (c *Config) ResetROI() { c.roiUS = 0 }

// SetROI overwrites the ROI with d
func (c *Config) SetROI(d time.Duration) error {
	return c.SetROIMicros(micros(d))
}

// SetROIBetween overwrites the ROI with end - start
func (c *Config) SetROIBetween(start, end time.Time) error {
	d, err := span(start, end)
	if err != nil {
		return err
	}
	return c.SetROI(d)
}

// SetROIMicros overwrites the ROI with a value in microseconds
func (c *Config) SetROIMicros(us float64) error {
	if err := checkMicros(us); err != nil {
		return err
	}
	c.roiUS = us
	return nil
}

// IncrementROI adds d to the ROI
func (c *Config) IncrementROI(d time.Duration) error {
	return c.IncrementROIMicros(micros(d))
}

// IncrementROIMicros adds us microseconds to the ROI
func (c *Config) IncrementROIMicros(us float64) error {
	if err := checkMicros(us); err != nil {
		return err
	}
	c.roiUS += us
	return nil
}

// ROIMicros returns the accumulated ROI in microseconds
func (c *Config) ROIMicros() float64 { return c.roiUS }

// ResetWarmup zeroes the warmup accumulator
func (c *Config) ResetWarmup() { c.warmupUS = 0 }

// SetWarmup overwrites the warmup time with d
func (c *Config) SetWarmup(d time.Duration) error {
	return c.SetWarmupMicros(micros(d))
}

// SetWarmupBetween overwrites the warmup time with end - start
func (c *Config) SetWarmupBetween(start, end time.Time) error {
	d, err := span(start, end)
	if err != nil {
		return err
	}
	return c.SetWarmup(d)
}

// SetWarmupMicros overwrites the warmup time with a value in microseconds
func (c *Config) SetWarmupMicros(us float64) error {
	if err := checkMicros(us); err != nil {
		return err
	}
	c.warmupUS = us
	return nil
}

// IncrementWarmup adds d to the warmup time
func (c *Config) IncrementWarmup(d time.Duration) error {
	return c.IncrementWarmupMicros(micros(d))
}

// IncrementWarmupMicros adds us microseconds to the warmup time
func (c *Config) IncrementWarmupMicros(us float64) error {
	if err := checkMicros(us); err != nil {
		return err
	}
	c.warmupUS += us
	return nil
}

// WarmupMicros returns the accumulated warmup time in microseconds
func (c *Config) WarmupMicros() float64 { return c.warmupUS }

// Tolerance returns the absolute tolerance for p. PrecExact and unknown
// precisions always compare with tolerance 0.
func (c *Config) Tolerance(p Precision) float64 {
	if !p.Floating() {
		return 0
	}
	return c.tolerances[p]
}

// ExtendedTolerance returns the PrecExtended tolerance as a *big.Float
func (c *Config) ExtendedTolerance() *big.Float {
	return extendedTolerance(c.tolerances[PrecExtended])
}

// SetTolerance overrides the tolerance for p. The value is rounded to
// the precision's own representation.
func (c *Config) SetTolerance(p Precision, v float64) error {
	if !p.Floating() {
		return NewConfigError("SetTolerance", "precision "+p.String()+" has no tolerance")
	}
	if math.IsNaN(v) || v < 0 {
		return ErrInvalidTolerance
	}
	c.tolerances[p] = p.Round(v)
	return nil
}

// SetAllTolerances overrides the tolerance of every floating precision
func (c *Config) SetAllTolerances(v float64) error {
	if math.IsNaN(v) || v < 0 {
		return ErrInvalidTolerance
	}
	for _, p := range FloatingPrecisions() {
		c.tolerances[p] = p.Round(v)
	}
	return nil
}

// Tolerances returns a snapshot of the tolerance table
func (c *Config) Tolerances() map[Precision]float64 {
	out := make(map[Precision]float64, numPrecisions)
	for _, p := range FloatingPrecisions() {
		out[p] = c.tolerances[p]
	}
	return out
}

// ToleranceFor returns the tolerance registered for the Go type T
func ToleranceFor[T any](c *Config) float64 {
	p, _ := PrecisionOf[T]()
	return c.Tolerance(p)
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func checkMicros(us float64) error {
	if math.IsNaN(us) || us < 0 {
		return ErrNegativeDuration
	}
	return nil
}

// span returns end - start, refusing zero timestamps and negative spans
func span(start, end time.Time) (time.Duration, error) {
	if start.IsZero() || end.IsZero() {
		return 0, ErrClockUnavailable
	}
	d := end.Sub(start)
	if d < 0 {
		return 0, ErrClockSkew
	}
	return d, nil
}
