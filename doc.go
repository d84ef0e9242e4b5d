// Copyright ©2026 The kbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kbench compares candidate implementations of one computation
// against a reference.
//
// Every implementation runs under the same two-phase protocol: untimed
// warmup iterations, then measured iterations whose elapsed time becomes
// the region of interest (ROI). Each candidate's final output is checked
// element-wise against the reference output with an absolute tolerance
// chosen by precision:
//   - float16 and bfloat16 for reduced-precision kernels
//   - float32 and float64
//   - extended (*big.Float with a 64-bit mantissa)
//   - exact comparison for integers, strings and booleans
//
// A run is driven through a Comparison, which owns an explicit Config and
// State rather than process globals, and yields a Report that renders as a
// table, JSON or YAML. Implementations attached to a Plugin are also run
// under an external driver such as the testing package's benchmark loop.
package kbench
