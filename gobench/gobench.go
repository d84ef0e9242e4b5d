// Package gobench runs kbench implementations under the testing package's
// benchmark driver, which picks the iteration count and reports ns/op and
// allocation figures.
package gobench

import (
	"context"
	"testing"
	"time"

	"github.com/LynnColeArt/kbench"
)

// Name is the plugin name used in reports
const Name = "gobench"

// RoiUnit is the extra metric reported by manually timed loops
const RoiUnit = "roi-ns/op"

type registration struct {
	name string
	run  kbench.PluginRunFunc
}

// Plugin collects implementations and benchmarks each with testing.Benchmark
type Plugin struct {
	regs []registration
}

// New returns an empty Plugin
func New() *Plugin {
	return &Plugin{}
}

// Name implements kbench.Plugin
func (p *Plugin) Name() string { return Name }

// Register implements kbench.Plugin
func (p *Plugin) Register(name string, run kbench.PluginRunFunc) {
	p.regs = append(p.regs, registration{name: name, run: run})
}

// Len returns the number of registered implementations
func (p *Plugin) Len() int { return len(p.regs) }

// Run benchmarks every registered implementation in registration order
func (p *Plugin) Run(ctx context.Context, rt *kbench.Runtime) ([]kbench.PluginResult, error) {
	results := make([]kbench.PluginResult, 0, len(p.regs))
	for _, reg := range p.regs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		rt.State.SetImplName(reg.name)
		res := p.runOne(rt, reg)
		if rt.Logger != nil {
			rt.Logger.Debug("plugin benchmark complete",
				"plugin", Name,
				"impl", reg.name,
				"iterations", res.Iterations,
				"ns_per_op", res.NsPerOp)
		}
		results = append(results, res)
	}
	return results, nil
}

func (p *Plugin) runOne(rt *kbench.Runtime, reg registration) kbench.PluginResult {
	clock := rt.Clock
	if clock == nil {
		clock = kbench.SystemClock{}
	}
	var runErr error
	br := testing.Benchmark(func(b *testing.B) {
		b.ReportAllocs()
		d := &driver{b: b, clock: clock}
		if err := reg.run(rt.NewLoop(d)); err != nil {
			// skipping marks the benchmark finished, so no larger b.N follows
			runErr = err
			b.SkipNow()
		}
	})

	res := kbench.PluginResult{Plugin: Name, Name: reg.name}
	if runErr != nil {
		res.Err = kbench.NewPluginError("Benchmark", reg.name+" failed", runErr)
		return res
	}
	res.Iterations = br.N
	if br.N > 0 {
		res.NsPerOp = float64(br.T.Nanoseconds()) / float64(br.N)
	}
	res.ROINsPerOp = br.Extra[RoiUnit]
	res.AllocsPerOp = br.AllocsPerOp()
	res.BytesPerOp = br.AllocedBytesPerOp()
	return res
}

// driver adapts *testing.B to kbench.Driver
type driver struct {
	b     *testing.B
	clock kbench.Clock
}

func (d *driver) Loop(body func() error) error {
	d.b.ResetTimer()
	for i := 0; i < d.b.N; i++ {
		if err := body(); err != nil {
			return err
		}
	}
	d.b.StopTimer()
	return nil
}

// ManualLoop keeps the benchmark timer stopped except inside Timer spans,
// so ns/op covers the bracketed region only. Spans reported through
// SetIterationTime show up in the roi-ns/op metric.
func (d *driver) ManualLoop(body func(t *kbench.Timer) error) error {
	d.b.StopTimer()
	d.b.ResetTimer()
	hooks := &timerHooks{b: d.b}
	for i := 0; i < d.b.N; i++ {
		t := kbench.NewTimer(d.clock, hooks)
		if err := body(t); err != nil {
			return err
		}
		if err := t.Finish(); err != nil {
			return err
		}
	}
	d.b.ReportMetric(float64(hooks.total.Nanoseconds())/float64(d.b.N), RoiUnit)
	return nil
}

type timerHooks struct {
	b     *testing.B
	total time.Duration
}

func (h *timerHooks) StartTimer() { h.b.StartTimer() }
func (h *timerHooks) StopTimer()  { h.b.StopTimer() }

func (h *timerHooks) Record(d time.Duration) error {
	h.total += d
	return nil
}
