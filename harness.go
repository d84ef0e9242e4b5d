// Package kbench comparison driver: runs the reference and every candidate
// under the timing protocol, validates outputs and assembles the report
package kbench

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/LynnColeArt/kbench"

// Func is a kernel invoked once per iteration by the timing protocol
type Func[In, Out any] func(in In, out *Out) error

// LoopFunc is an implementation that owns its hot loop: it may do untimed
// setup, then calls l.Run or l.RunManual exactly once.
type LoopFunc[In, Out any] func(l *Loop, in In, out *Out) error

// Option configures a Comparison
type Option func(*settings)

type settings struct {
	cfg        *Config
	state      *State
	clock      Clock
	logger     *slog.Logger
	tp         trace.TracerProvider
	metrics    *Metrics
	flushBytes int
}

// WithConfig uses cfg instead of a fresh NewConfig
func WithConfig(cfg *Config) Option { return func(s *settings) { s.cfg = cfg } }

// WithState uses st instead of a fresh NewState
func WithState(st *State) Option { return func(s *settings) { s.state = st } }

// WithClock replaces the system clock
func WithClock(c Clock) Option { return func(s *settings) { s.clock = c } }

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option { return func(s *settings) { s.logger = l } }

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) Option { return func(s *settings) { s.tp = tp } }

// WithMetrics records every result into m
func WithMetrics(m *Metrics) Option { return func(s *settings) { s.metrics = m } }

// WithColdCache flushes size bytes of cache before each implementation
func WithColdCache(size int) Option { return func(s *settings) { s.flushBytes = size } }

// Impl is a registered implementation
type Impl[In, Out any] struct {
	name   string
	fn     LoopFunc[In, Out]
	parent *Comparison[In, Out]
}

// Name returns the display name
func (i *Impl[In, Out]) Name() string { return i.name }

// Attach marks the implementation for p. Registration with the plugin
// happens at Run, for implementations still part of the Comparison; each
// plugin runs once per Run regardless of how many implementations attach
// to it.
func (i *Impl[In, Out]) Attach(p Plugin) *Impl[In, Out] {
	c := i.parent
	for _, a := range c.attached {
		if a.impl == i && a.plugin == p {
			return i
		}
	}
	c.attached = append(c.attached, &attachment[In, Out]{impl: i, plugin: p})
	return i
}

type attachment[In, Out any] struct {
	impl       *Impl[In, Out]
	plugin     Plugin
	registered bool
}

// Comparison benchmarks candidate implementations of one computation
// against a reference. Implementations run one at a time; a Comparison
// refuses a second concurrent Run with ErrBusy.
type Comparison[In, Out any] struct {
	mu sync.Mutex

	input In
	settings
	tracer  trace.Tracer
	compare Comparator[Out]

	ref      *Impl[In, Out]
	impls    []*Impl[In, Out]
	attached []*attachment[In, Out]

	outputs map[string]Out
}

// New returns a Comparison over input. Every implementation receives the
// same input value and must treat it as read-only.
func New[In, Out any](input In, opts ...Option) *Comparison[In, Out] {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.cfg == nil {
		s.cfg = NewConfig()
	}
	if s.state == nil {
		s.state = NewState()
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tp == nil {
		s.tp = otel.GetTracerProvider()
	}
	return &Comparison[In, Out]{
		input:    input,
		settings: s,
		tracer:   s.tp.Tracer(tracerName),
	}
}

// Config returns the run configuration
func (c *Comparison[In, Out]) Config() *Config { return c.cfg }

// State returns the run state
func (c *Comparison[In, Out]) State() *State { return c.state }

// SetComparator overrides the comparator picked by AutoComparator
func (c *Comparison[In, Out]) SetComparator(cmp Comparator[Out]) {
	c.compare = cmp
}

// SetReference sets the implementation candidates are validated against
func (c *Comparison[In, Out]) SetReference(name string, fn LoopFunc[In, Out]) *Impl[In, Out] {
	c.ref = &Impl[In, Out]{name: name, fn: fn, parent: c}
	return c.ref
}

// SetReferenceKernel sets a per-iteration kernel as the reference
func (c *Comparison[In, Out]) SetReferenceKernel(name string, k Func[In, Out]) *Impl[In, Out] {
	return c.SetReference(name, kernelLoop(k))
}

// Add registers a candidate implementation
func (c *Comparison[In, Out]) Add(name string, fn LoopFunc[In, Out]) *Impl[In, Out] {
	impl := &Impl[In, Out]{name: name, fn: fn, parent: c}
	c.impls = append(c.impls, impl)
	return impl
}

// AddKernel registers a per-iteration kernel as a candidate
func (c *Comparison[In, Out]) AddKernel(name string, k Func[In, Out]) *Impl[In, Out] {
	return c.Add(name, kernelLoop(k))
}

func kernelLoop[In, Out any](k Func[In, Out]) LoopFunc[In, Out] {
	return func(l *Loop, in In, out *Out) error {
		return l.Run(func() error { return k(in, out) })
	}
}

// Run benchmarks the reference, then each candidate in registration order,
// then hands attached implementations to their plugins. An implementation
// that fails or panics is marked ERROR and the run continues; a timing
// failure aborts the run. ctx is only consulted between implementations.
func (c *Comparison[In, Out]) Run(ctx context.Context) (*Report, error) {
	if !c.mu.TryLock() {
		return nil, ErrBusy
	}
	defer c.mu.Unlock()

	if c.ref == nil {
		if len(c.impls) == 0 {
			return nil, ErrNoImplementations
		}
		return nil, ErrNoReference
	}
	impls := append([]*Impl[In, Out]{c.ref}, c.impls...)
	if err := checkNames(impls); err != nil {
		return nil, err
	}

	compare := c.compare
	if compare == nil {
		var err error
		if compare, err = AutoComparator[Out](); err != nil {
			return nil, err
		}
	}

	plugins, err := c.registerPlugins(impls)
	if err != nil {
		return nil, err
	}

	report := newReport(c.cfg)
	c.logger.Info("benchmark configuration",
		"run_id", report.RunID,
		"warmup_iters", c.cfg.WarmupIters(),
		"bench_iters", c.cfg.BenchIters(),
		"implementations", len(impls))

	c.outputs = make(map[string]Out, len(impls))
	var refOut Out
	refOK := false

	for k, impl := range impls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, out, err := c.runOne(ctx, impl, k == 0)
		if err != nil {
			c.logger.Error("timing failure, aborting run", "impl", impl.name, "error", err)
			return nil, err
		}

		switch {
		case k == 0:
			refOut, refOK = out, res.Err == nil
		case res.Err == nil && refOK:
			v := compare(c.cfg, refOut, out)
			res.Verdict = &v
		}

		c.outputs[impl.name] = out
		report.Results = append(report.Results, res)
		c.metrics.Observe(res)
		c.logResult(res)

		c.cfg.ResetROI()
	}

	if len(plugins) > 0 {
		report.Plugins = c.runPlugins(ctx, plugins)
	}

	return report, nil
}

func checkNames[In, Out any](impls []*Impl[In, Out]) error {
	seen := make(map[string]struct{}, len(impls))
	for _, impl := range impls {
		if _, ok := seen[impl.name]; ok {
			return &Error{
				Type:    ErrTypeConfig,
				Op:      "Run",
				Message: "duplicate implementation name",
				Context: impl.name,
			}
		}
		seen[impl.name] = struct{}{}
	}
	return nil
}

// runOne invokes one implementation. The returned error is non-nil only for
// timing failures; implementation failures land in Result.Err.
func (c *Comparison[In, Out]) runOne(ctx context.Context, impl *Impl[In, Out], isRef bool) (Result, Out, error) {
	var out Out

	c.state.SetImplName(impl.name)
	c.state.SetUsingPlugin(false)
	c.cfg.ResetROI()
	c.cfg.ResetWarmup()

	if c.flushBytes > 0 {
		FlushCaches(c.flushBytes)
	}

	_, span := c.tracer.Start(ctx, "kbench.implementation", trace.WithAttributes(
		attribute.String("kbench.impl", impl.name),
		attribute.Bool("kbench.reference", isRef),
	))
	defer span.End()

	loop := NewLoop(c.cfg, c.state, c.clock, nil).withLogger(c.logger)

	start := c.clock.Now()
	err := invoke(impl.fn, loop, c.input, &out)
	funcTime, clockErr := Since(c.clock, start)
	if clockErr != nil {
		err = clockErr
	}
	if IsTimingError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "timing failure")
		return Result{}, out, err
	}

	res := Result{
		Name:         impl.name,
		Reference:    isRef,
		FuncMicros:   micros(funcTime),
		ROIMicros:    c.cfg.ROIMicros(),
		WarmupMicros: c.cfg.WarmupMicros(),
		Err:          err,
	}
	res.OverheadMicros = res.FuncMicros - res.ROIMicros - res.WarmupMicros

	span.SetAttributes(
		attribute.Float64("kbench.func_us", res.FuncMicros),
		attribute.Float64("kbench.roi_us", res.ROIMicros),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "implementation failed")
	}
	return res, out, nil
}

// invoke calls fn, turning panics and plain errors into execution errors
func invoke[In, Out any](fn LoopFunc[In, Out], l *Loop, in In, out *Out) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{
				Type:    ErrTypeExecution,
				Op:      "Invoke",
				Message: "implementation panicked",
				Err:     fmt.Errorf("panic: %v", r),
				Context: r,
			}
		}
	}()

	err = fn(l, in, out)
	if err != nil && !IsTimingError(err) && !IsExecutionError(err) {
		err = NewExecutionError("Invoke", "implementation failed", err)
	}
	return err
}

// registerPlugins registers pending attachments of live implementations and
// returns the plugins to run, in attach order. An implementation that was
// replaced after its plugin registration is refused: plugins have no way
// to forget a registration.
func (c *Comparison[In, Out]) registerPlugins(live []*Impl[In, Out]) ([]Plugin, error) {
	var plugins []Plugin
	for _, a := range c.attached {
		if !slices.Contains(live, a.impl) {
			if a.registered {
				return nil, &Error{
					Type:    ErrTypeConfig,
					Op:      "Run",
					Message: "replaced implementation is still registered with a plugin",
					Context: a.plugin.Name() + ": " + a.impl.name,
				}
			}
			c.logger.Debug("skipping detached implementation", "impl", a.impl.name, "plugin", a.plugin.Name())
			continue
		}
		if !a.registered {
			fn := a.impl.fn
			a.plugin.Register(a.impl.name, func(l *Loop) error {
				var out Out
				return invoke(fn, l, c.input, &out)
			})
			a.registered = true
		}
		if !slices.Contains(plugins, a.plugin) {
			plugins = append(plugins, a.plugin)
		}
	}
	return plugins, nil
}

func (c *Comparison[In, Out]) runPlugins(ctx context.Context, plugins []Plugin) []PluginResult {
	c.state.SetUsingPlugin(true)
	defer c.state.SetUsingPlugin(false)

	rt := &Runtime{Config: c.cfg, State: c.state, Clock: c.clock, Logger: c.logger}

	var results []PluginResult
	for _, p := range plugins {
		c.logger.Info("running plugin", "plugin", p.Name())
		pr, err := p.Run(ctx, rt)
		if err != nil {
			err = NewPluginError("Run", p.Name()+" failed", err)
			c.logger.Error("plugin failed", "plugin", p.Name(), "error", err)
			pr = append(pr, PluginResult{Plugin: p.Name(), Err: err})
		}
		results = append(results, pr...)
	}
	c.cfg.ResetROI()
	return results
}

func (c *Comparison[In, Out]) logResult(res Result) {
	attrs := []any{
		"impl", res.Name,
		"status", res.Status(),
		"func_us", res.FuncMicros,
		"roi_us", res.ROIMicros,
		"warmup_us", res.WarmupMicros,
	}
	if res.Verdict != nil && !res.Verdict.Passed() {
		attrs = append(attrs,
			"mismatches", res.Verdict.Mismatches,
			"first_mismatch", res.Verdict.FirstMismatch,
			"max_abs_err", res.Verdict.MaxAbsErr)
	}
	if res.Err != nil {
		c.logger.Warn("implementation errored", append(attrs, "error", res.Err)...)
		return
	}
	c.logger.Info("implementation complete", attrs...)
}

// ReferenceOutput returns the reference implementation's retained output
func (c *Comparison[In, Out]) ReferenceOutput() (Out, error) {
	var zero Out
	if c.ref == nil {
		return zero, ErrNoReference
	}
	return c.Output(c.ref.name)
}

// Output returns the retained output of the named implementation from the
// last Run: the value written by its final measured iteration.
func (c *Comparison[In, Out]) Output(name string) (Out, error) {
	var zero Out
	if c.outputs == nil {
		return zero, ErrNotRun
	}
	out, ok := c.outputs[name]
	if !ok {
		return zero, &Error{
			Type:    ErrTypeInvalidArg,
			Op:      "Output",
			Message: "unknown implementation",
			Context: name,
		}
	}
	return out, nil
}
