// Package workload holds the numeric kernels benchmarked by the example
// drivers: single-precision a*x+y and a max reduction.
package workload

import (
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Saxpy value ranges for generated inputs
const (
	SaxpyValueRange  = 1e6
	SaxpyScalarRange = 5
)

// SaxpyInput is the read-only input of y_out = a*x + y
type SaxpyInput struct {
	A float32
	X []float32
	Y []float32
}

// NewSaxpyInput returns n uniformly distributed x and y values in
// [-1e6, 1e6) drawn from a generator seeded with seed.
func NewSaxpyInput(n int, a float32, seed uint64) SaxpyInput {
	rng := newRand(seed)
	in := SaxpyInput{
		A: a,
		X: make([]float32, n),
		Y: make([]float32, n),
	}
	for i := range n {
		in.X[i] = uniform(rng, SaxpyValueRange)
		in.Y[i] = uniform(rng, SaxpyValueRange)
	}
	return in
}

// RandomScalar returns a scalar in [-5, 5)
func RandomScalar(seed uint64) float32 {
	return uniform(newRand(seed), SaxpyScalarRange)
}

// Len returns the vector length
func (in SaxpyInput) Len() int { return len(in.X) }

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(rng *rand.Rand, r float32) float32 {
	return (rng.Float32()*2 - 1) * r
}

func resize(out *[]float32, n int) []float32 {
	if cap(*out) < n {
		*out = make([]float32, n)
	}
	*out = (*out)[:n]
	return *out
}

// SaxpySerial computes y_out[i] = a*x[i] + y[i] in one pass
func SaxpySerial(in SaxpyInput, out *[]float32) error {
	y := resize(out, in.Len())
	for i := range in.X {
		y[i] = in.A*in.X[i] + in.Y[i]
	}
	return nil
}

// SaxpyUnrolled is SaxpySerial with the loop unrolled by 4
func SaxpyUnrolled(in SaxpyInput, out *[]float32) error {
	n := in.Len()
	y := resize(out, n)
	a, x, yin := in.A, in.X, in.Y

	i := 0
	for ; i+4 <= n; i += 4 {
		y[i] = a*x[i] + yin[i]
		y[i+1] = a*x[i+1] + yin[i+1]
		y[i+2] = a*x[i+2] + yin[i+2]
		y[i+3] = a*x[i+3] + yin[i+3]
	}
	for ; i < n; i++ {
		y[i] = a*x[i] + yin[i]
	}
	return nil
}

// SaxpyParallel splits the vectors into one contiguous chunk per CPU
func SaxpyParallel(in SaxpyInput, out *[]float32) error {
	n := in.Len()
	y := resize(out, n)

	var g errgroup.Group
	for _, c := range chunks(n, runtime.GOMAXPROCS(0)) {
		g.Go(func() error {
			for i := c.start; i < c.end; i++ {
				y[i] = in.A*in.X[i] + in.Y[i]
			}
			return nil
		})
	}
	return g.Wait()
}

type chunk struct{ start, end int }

// chunks divides [0, n) into at most parts ranges of equal size
func chunks(n, parts int) []chunk {
	if n == 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	size := (n + parts - 1) / parts
	out := make([]chunk, 0, parts)
	for start := 0; start < n; start += size {
		out = append(out, chunk{start: start, end: min(start+size, n)})
	}
	return out
}
