package workload

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Normal distribution parameters for generated max-reduction inputs
const (
	MaxMean   = -1e5
	MaxStdDev = 1e5

	// DefaultMaxSeed is the fixed seed used when none is given
	DefaultMaxSeed = 42
)

// NewMaxInput returns n normally distributed values
func NewMaxInput(n int, seed uint64) []float32 {
	rng := newRand(seed)
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(rng.NormFloat64()*MaxStdDev + MaxMean)
	}
	return data
}

func maxOf(data []float32) float32 {
	m := float32(math.Inf(-1))
	for _, v := range data {
		if v > m {
			m = v
		}
	}
	return m
}

// MaxSerial finds the largest element; -Inf for an empty input
func MaxSerial(in []float32, out *float32) error {
	*out = maxOf(in)
	return nil
}

// MaxUnrolled keeps four running maxima and merges them at the end
func MaxUnrolled(in []float32, out *float32) error {
	inf := float32(math.Inf(-1))
	m0, m1, m2, m3 := inf, inf, inf, inf

	n := len(in)
	i := 0
	for ; i+4 <= n; i += 4 {
		m0 = max(m0, in[i])
		m1 = max(m1, in[i+1])
		m2 = max(m2, in[i+2])
		m3 = max(m3, in[i+3])
	}
	for ; i < n; i++ {
		m0 = max(m0, in[i])
	}
	*out = max(m0, m1, m2, m3)
	return nil
}

// MaxParallel reduces one chunk per CPU, then reduces the partial maxima
func MaxParallel(in []float32, out *float32) error {
	parts := chunks(len(in), runtime.GOMAXPROCS(0))
	partial := make([]float32, len(parts))

	var g errgroup.Group
	for k, c := range parts {
		g.Go(func() error {
			partial[k] = maxOf(in[c.start:c.end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	*out = maxOf(partial)
	return nil
}
