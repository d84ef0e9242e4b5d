package kbench

import (
	"time"

	"github.com/google/uuid"
)

// Status classifies one implementation's outcome
type Status string

const (
	StatusReference Status = "REF"
	StatusPass      Status = "PASS"
	StatusFail      Status = "FAIL"
	StatusError     Status = "ERROR"
	StatusUnchecked Status = "UNCHECKED" // reference errored, nothing to compare against
)

// Result holds timings and the verdict for one implementation
type Result struct {
	Name      string
	Reference bool

	FuncMicros     float64 // whole invocation
	ROIMicros      float64 // measured phase
	WarmupMicros   float64 // warmup phase
	OverheadMicros float64 // FuncMicros - ROIMicros - WarmupMicros

	Verdict *Verdict // nil for the reference, errored or unchecked runs
	Err     error
}

// Status returns the outcome classification
func (r Result) Status() Status {
	switch {
	case r.Err != nil:
		return StatusError
	case r.Reference:
		return StatusReference
	case r.Verdict == nil:
		return StatusUnchecked
	case r.Verdict.Passed():
		return StatusPass
	default:
		return StatusFail
	}
}

// Speedup returns ref's ROI divided by r's ROI; 0 when either is unusable
func (r Result) Speedup(ref Result) float64 {
	if r.Err != nil || ref.Err != nil || r.ROIMicros <= 0 {
		return 0
	}
	return ref.ROIMicros / r.ROIMicros
}

// Report is the aggregate of one Comparison.Run
type Report struct {
	RunID       uuid.UUID
	Started     time.Time
	Host        Host
	WarmupIters uint64
	BenchIters  uint64
	Tolerances  map[Precision]float64

	Results []Result
	Plugins []PluginResult
}

func newReport(cfg *Config) *Report {
	return &Report{
		RunID:       uuid.New(),
		Started:     time.Now(),
		Host:        HostInfo(),
		WarmupIters: cfg.WarmupIters(),
		BenchIters:  cfg.BenchIters(),
		Tolerances:  cfg.Tolerances(),
	}
}

// Reference returns the reference result
func (r *Report) Reference() (Result, bool) {
	for _, res := range r.Results {
		if res.Reference {
			return res, true
		}
	}
	return Result{}, false
}

// Result returns the result for the named implementation
func (r *Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Failed reports whether any implementation failed validation or errored
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		switch res.Status() {
		case StatusFail, StatusError:
			return true
		}
	}
	for _, p := range r.Plugins {
		if p.Err != nil {
			return true
		}
	}
	return false
}
