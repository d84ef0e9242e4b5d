// Copyright ©2026 The kbench Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command maxreduce compares implementations of a float32 max reduction
// over 2^size normally distributed values.
package main

import (
	"context"
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
	cmd := cli.NewCommand("maxreduce", "Compare max-reduction implementations against a serial reference", run)
	cmd.Flags().Uint("size", 24, "log2 of the input length")
	cmd.Flags().Uint64("seed", workload.DefaultMaxSeed, "seed for the generated input")
	return cmd
}

func run(ctx context.Context, env *cli.Env) (*kbench.Report, error) {
	v := env.Viper

	size := v.GetUint("size")
	if size > maxLog2Size {
		return nil, kbench.NewInvalidArgError("maxreduce", "size must be at most 30")
	}
	n := 1 << size

	env.Logger.Info("max reduction parameters",
		"n", n,
		"seed", v.GetUint64("seed"),
		"warmup_iters", env.Config.WarmupIters(),
		"bench_iters", env.Config.BenchIters())

	c := kbench.New[[]float32, float32](workload.NewMaxInput(n, v.GetUint64("seed")), env.Options()...)
	cli.AttachAll(env,
		c.SetReferenceKernel("cpu serial", workload.MaxSerial),
		c.AddKernel("cpu parallel", workload.MaxParallel),
		c.AddKernel("cpu unrolled", workload.MaxUnrolled),
	)
	return c.Run(ctx)
}
