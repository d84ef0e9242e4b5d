// Package kbench timing protocol: warmup, then a measured region whose
// elapsed time is accumulated into the Config's ROI
package kbench

import (
	"fmt"
	"log/slog"
	"time"
)

// Driver runs hot loops on behalf of a plugin. When the State reports a
// plugin run, Loop hands the body to the driver instead of timing it.
type Driver interface {
	Loop(body func() error) error
	ManualLoop(body func(t *Timer) error) error
}

// TimerHooks observe a Timer. StartTimer and StopTimer bracket each timed
// span; Record receives every span that counts toward the region.
type TimerHooks interface {
	StartTimer()
	StopTimer()
	Record(d time.Duration) error
}

// Loop executes one implementation's hot loop under the two-phase protocol.
// The harness creates one Loop per invocation.
type Loop struct {
	cfg    *Config
	state  *State
	clock  Clock
	driver Driver
	logger *slog.Logger
}

// NewLoop returns a Loop accumulating into cfg. driver may be nil.
func NewLoop(cfg *Config, state *State, clock Clock, driver Driver) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Loop{
		cfg:    cfg,
		state:  state,
		clock:  clock,
		driver: driver,
		logger: slog.Default(),
	}
}

func (l *Loop) withLogger(logger *slog.Logger) *Loop {
	if logger != nil {
		l.logger = logger
	}
	return l
}

func (l *Loop) pluginRun() bool {
	return l.driver != nil && l.state != nil && l.state.UsingPlugin()
}

// Config returns the configuration the loop accumulates into
func (l *Loop) Config() *Config { return l.cfg }

// Run calls body WarmupIters times, records that phase as warmup time,
// resets the ROI, then calls body BenchIters times and stores the elapsed
// time of the measured phase as the ROI.
func (l *Loop) Run(body func() error) error {
	if l.pluginRun() {
		return l.driver.Loop(body)
	}

	start := l.clock.Now()
	for i := uint64(0); i < l.cfg.WarmupIters(); i++ {
		if err := body(); err != nil {
			return iterationError("warmup", i, err)
		}
	}
	if err := l.cfg.SetWarmupBetween(start, l.clock.Now()); err != nil {
		return err
	}

	l.cfg.ResetROI()
	start = l.clock.Now()
	for i := uint64(0); i < l.cfg.BenchIters(); i++ {
		if err := body(); err != nil {
			return iterationError("measured", i, err)
		}
	}
	if err := l.cfg.SetROIBetween(start, l.clock.Now()); err != nil {
		return err
	}

	l.logPhases()
	return nil
}

// RunManual is Run for bodies that time their own region. Each iteration
// gets a fresh Timer; spans recorded during the measured phase are summed
// into the ROI, spans recorded during warmup are discarded.
func (l *Loop) RunManual(body func(t *Timer) error) error {
	if l.pluginRun() {
		return l.driver.ManualLoop(body)
	}

	start := l.clock.Now()
	for i := uint64(0); i < l.cfg.WarmupIters(); i++ {
		t := NewTimer(l.clock, discardHooks{})
		if err := runTimed(t, body); err != nil {
			return iterationError("warmup", i, err)
		}
	}
	if err := l.cfg.SetWarmupBetween(start, l.clock.Now()); err != nil {
		return err
	}

	l.cfg.ResetROI()
	hooks := roiHooks{cfg: l.cfg}
	for i := uint64(0); i < l.cfg.BenchIters(); i++ {
		t := NewTimer(l.clock, hooks)
		if err := runTimed(t, body); err != nil {
			return iterationError("measured", i, err)
		}
	}

	l.logPhases()
	return nil
}

func (l *Loop) logPhases() {
	name := ""
	if l.state != nil {
		name = l.state.ImplName()
	}
	l.logger.Debug("hot loop complete",
		"impl", name,
		"warmup_iters", l.cfg.WarmupIters(),
		"bench_iters", l.cfg.BenchIters(),
		"warmup_us", l.cfg.WarmupMicros(),
		"roi_us", l.cfg.ROIMicros())
}

func runTimed(t *Timer, body func(t *Timer) error) error {
	if err := body(t); err != nil {
		return err
	}
	return t.Finish()
}

func iterationError(phase string, i uint64, err error) error {
	if IsTimingError(err) {
		return err
	}
	return NewExecutionError("Loop", fmt.Sprintf("%s iteration %d failed", phase, i), err)
}

// Timer brackets the timed region inside one iteration of a manual loop.
// Start and Stop may be called several times per iteration; each span is
// recorded. SetIterationTime records an externally measured span.
type Timer struct {
	clock   Clock
	hooks   TimerHooks
	start   time.Time
	running bool
	err     error
}

// NewTimer returns a Timer reporting to hooks
func NewTimer(clock Clock, hooks TimerHooks) *Timer {
	return &Timer{clock: clock, hooks: hooks}
}

// Start begins a timed span
func (t *Timer) Start() {
	if t.err != nil {
		return
	}
	if t.running {
		t.fail("Start called twice")
		return
	}
	t.running = true
	t.hooks.StartTimer()
	t.start = t.clock.Now()
}

// Stop ends the current span and records it
func (t *Timer) Stop() {
	end := t.clock.Now()
	if t.err != nil {
		return
	}
	if !t.running {
		t.fail("Stop without Start")
		return
	}
	t.running = false
	t.hooks.StopTimer()
	d, err := span(t.start, end)
	if err != nil {
		t.err = err
		return
	}
	t.record(d)
}

// SetIterationTime records d as a timed span
func (t *Timer) SetIterationTime(d time.Duration) {
	if t.err != nil {
		return
	}
	if d < 0 {
		t.err = ErrNegativeDuration
		return
	}
	t.record(d)
}

func (t *Timer) record(d time.Duration) {
	if err := t.hooks.Record(d); err != nil {
		t.err = err
	}
}

func (t *Timer) fail(detail string) {
	t.err = &Error{
		Type:    ErrTypeExecution,
		Op:      "Timer",
		Message: "unbalanced start/stop",
		Context: detail,
	}
}

// Finish reports misuse or clock errors seen during the iteration,
// including a span left running.
func (t *Timer) Finish() error {
	if t.err == nil && t.running {
		t.fail("Start without Stop")
	}
	return t.err
}

type discardHooks struct{}

func (discardHooks) StartTimer()                  {}
func (discardHooks) StopTimer()                   {}
func (discardHooks) Record(d time.Duration) error { return nil }

type roiHooks struct {
	cfg *Config
}

func (roiHooks) StartTimer() {}
func (roiHooks) StopTimer()  {}

func (h roiHooks) Record(d time.Duration) error {
	return h.cfg.IncrementROI(d)
}
