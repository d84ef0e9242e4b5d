package kbench

import "runtime"

// DoNotOptimize marks v as used so the compiler cannot drop the
// computation that produced it. Use it in timing-only implementations whose
// results are otherwise discarded.
func DoNotOptimize[T any](v T) {
	runtime.KeepAlive(v)
}
