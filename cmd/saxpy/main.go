// Copyright ©2026 The kbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command saxpy compares implementations of y_out = a*x + y on float32
// vectors of length 2^size.
package main

import (
	"context"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/LynnColeArt/kbench"
	"github.com/LynnColeArt/kbench/internal/cli"
	"github.com/LynnColeArt/kbench/internal/workload"
)

const maxLog2Size = 30

func main() {
	os.Exit(cli.Execute(newCommand()))
}

func newCommand() *cobra.Command {
	cmd := cli.NewCommand("saxpy", "Compare SAXPY implementations against a serial reference", run)
	cmd.Flags().Uint("size", 20, "log2 of the vector length")
	cmd.Flags().Float32("scalar", 0, "scalar a (random in [-5, 5) when unset)")
	cmd.Flags().Uint64("seed", 0, "seed for the generated vectors (random when 0)")
	return cmd
}

func run(ctx context.Context, env *cli.Env) (*kbench.Report, error) {
	v := env.Viper

	size := v.GetUint("size")
	if size > maxLog2Size {
		return nil, kbench.NewInvalidArgError("saxpy", "size must be at most 30")
	}
	seed := v.GetUint64("seed")
	if seed == 0 {
		seed = rand.Uint64()
	}
	a := workload.RandomScalar(seed)
	if v.IsSet("scalar") {
		a = float32(v.GetFloat64("scalar"))
	}

	n := 1 << size
	env.Logger.Info("saxpy parameters",
		"n", n,
		"scalar", a,
		"seed", seed,
		"warmup_iters", env.Config.WarmupIters(),
		"bench_iters", env.Config.BenchIters(),
		"tolerance", env.Config.Tolerance(kbench.PrecFloat32))

	c := kbench.New[workload.SaxpyInput, []float32](workload.NewSaxpyInput(n, a, seed), env.Options()...)
	cli.AttachAll(env,
		c.SetReferenceKernel("cpu serial", workload.SaxpySerial),
		c.AddKernel("cpu parallel", workload.SaxpyParallel),
		c.AddKernel("cpu unrolled", workload.SaxpyUnrolled),
	)
	return c.Run(ctx)
}
