package kbench

import (
	"context"
	"log/slog"
)

// Plugin runs registered implementations under an external benchmark
// driver after the built-in comparison has finished. The harness sets
// State.UsingPlugin for the duration of Run, so Loop.Run and
// Loop.RunManual hand their bodies to the plugin's Driver.
//
// Plugins are compared by identity when attached; use pointer types.
type Plugin interface {
	Name() string
	Register(name string, run PluginRunFunc)
	Run(ctx context.Context, rt *Runtime) ([]PluginResult, error)
}

// PluginRunFunc invokes one implementation once, with its input bound and a
// fresh output, using the supplied Loop.
type PluginRunFunc func(l *Loop) error

// Runtime is the harness context handed to a running plugin
type Runtime struct {
	Config *Config
	State  *State
	Clock  Clock
	Logger *slog.Logger
}

// NewLoop returns a Loop that delegates hot loops to d while the State
// reports a plugin run.
func (rt *Runtime) NewLoop(d Driver) *Loop {
	return NewLoop(rt.Config, rt.State, rt.Clock, d).withLogger(rt.Logger)
}

// PluginResult is one implementation's measurement under a plugin
type PluginResult struct {
	Plugin      string
	Name        string
	Iterations  int
	NsPerOp     float64
	ROINsPerOp  float64 // only set by manual timing
	AllocsPerOp int64
	BytesPerOp  int64
	Err         error
}
