package kbench

import (
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// reportDoc is the serialized form of a Report
type reportDoc struct {
	RunID       string             `json:"run_id" yaml:"run_id"`
	Started     time.Time          `json:"started" yaml:"started"`
	Host        hostDoc            `json:"host" yaml:"host"`
	WarmupIters uint64             `json:"warmup_iters" yaml:"warmup_iters"`
	BenchIters  uint64             `json:"bench_iters" yaml:"bench_iters"`
	Tolerances  map[string]float64 `json:"tolerances" yaml:"tolerances"`
	Results     []resultDoc        `json:"results" yaml:"results"`
	Plugins     []pluginDoc        `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Failed      bool               `json:"failed" yaml:"failed"`
}

type hostDoc struct {
	Hostname  string   `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	GOOS      string   `json:"goos" yaml:"goos"`
	GOARCH    string   `json:"goarch" yaml:"goarch"`
	NumCPU    int      `json:"num_cpu" yaml:"num_cpu"`
	GoVersion string   `json:"go_version" yaml:"go_version"`
	Version   string   `json:"version,omitempty" yaml:"version,omitempty"`
	Features  []string `json:"features,omitempty" yaml:"features,omitempty"`
}

type resultDoc struct {
	Name           string      `json:"name" yaml:"name"`
	Reference      bool        `json:"reference,omitempty" yaml:"reference,omitempty"`
	Status         Status      `json:"status" yaml:"status"`
	FuncMicros     float64     `json:"func_us" yaml:"func_us"`
	ROIMicros      float64     `json:"roi_us" yaml:"roi_us"`
	WarmupMicros   float64     `json:"warmup_us" yaml:"warmup_us"`
	OverheadMicros float64     `json:"overhead_us" yaml:"overhead_us"`
	Speedup        float64     `json:"speedup,omitempty" yaml:"speedup,omitempty"`
	Verdict        *verdictDoc `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Error          string      `json:"error,omitempty" yaml:"error,omitempty"`
}

type verdictDoc struct {
	Precision     string `json:"precision" yaml:"precision"`
	Tolerance     number `json:"tolerance" yaml:"tolerance"`
	Compared      int    `json:"compared" yaml:"compared"`
	Mismatches    int    `json:"mismatches" yaml:"mismatches"`
	FirstMismatch int    `json:"first_mismatch" yaml:"first_mismatch"`
	Indices       []int  `json:"indices,omitempty" yaml:"indices,omitempty,flow"`
	Expected      string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual        string `json:"actual,omitempty" yaml:"actual,omitempty"`
	MaxAbsErr     number `json:"max_abs_err" yaml:"max_abs_err"`
	MeanAbsErr    number `json:"mean_abs_err" yaml:"mean_abs_err"`
	TotalAbsErr   number `json:"total_abs_err" yaml:"total_abs_err"`
	Error         string `json:"error,omitempty" yaml:"error,omitempty"`

	Outputs []outputDoc `json:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// outputDoc is one output's verdict of a multi-output result
type outputDoc struct {
	Name       string `json:"name" yaml:"name"`
	verdictDoc `yaml:",inline"`
}

type pluginDoc struct {
	Plugin      string  `json:"plugin" yaml:"plugin"`
	Name        string  `json:"name" yaml:"name"`
	Iterations  int     `json:"iterations" yaml:"iterations"`
	NsPerOp     float64 `json:"ns_per_op" yaml:"ns_per_op"`
	ROINsPerOp  float64 `json:"roi_ns_per_op,omitempty" yaml:"roi_ns_per_op,omitempty"`
	AllocsPerOp int64   `json:"allocs_per_op" yaml:"allocs_per_op"`
	BytesPerOp  int64   `json:"bytes_per_op" yaml:"bytes_per_op"`
	Error       string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// number is a float that survives JSON encoding when non-finite: NaN and
// the infinities are written as strings.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return json.Marshal(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return json.Marshal(f)
}

func (n number) MarshalYAML() (any, error) {
	return float64(n), nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func newReportDoc(r *Report) reportDoc {
	doc := reportDoc{
		RunID:       r.RunID.String(),
		Started:     r.Started,
		WarmupIters: r.WarmupIters,
		BenchIters:  r.BenchIters,
		Tolerances:  make(map[string]float64, len(r.Tolerances)),
		Failed:      r.Failed(),
		Host: hostDoc{
			Hostname:  r.Host.Hostname,
			GOOS:      r.Host.GOOS,
			GOARCH:    r.Host.GOARCH,
			NumCPU:    r.Host.NumCPU,
			GoVersion: r.Host.GoVersion,
			Version:   r.Host.Version,
			Features:  r.Host.Features,
		},
	}
	for p, tol := range r.Tolerances {
		doc.Tolerances[p.String()] = tol
	}

	ref, hasRef := r.Reference()
	for _, res := range r.Results {
		rd := resultDoc{
			Name:           res.Name,
			Reference:      res.Reference,
			Status:         res.Status(),
			FuncMicros:     res.FuncMicros,
			ROIMicros:      res.ROIMicros,
			WarmupMicros:   res.WarmupMicros,
			OverheadMicros: res.OverheadMicros,
			Error:          errString(res.Err),
		}
		if hasRef && !res.Reference {
			rd.Speedup = res.Speedup(ref)
		}
		if res.Verdict != nil {
			rd.Verdict = newVerdictDoc(*res.Verdict)
		}
		doc.Results = append(doc.Results, rd)
	}

	for _, pr := range r.Plugins {
		doc.Plugins = append(doc.Plugins, pluginDoc{
			Plugin:      pr.Plugin,
			Name:        pr.Name,
			Iterations:  pr.Iterations,
			NsPerOp:     pr.NsPerOp,
			ROINsPerOp:  pr.ROINsPerOp,
			AllocsPerOp: pr.AllocsPerOp,
			BytesPerOp:  pr.BytesPerOp,
			Error:       errString(pr.Err),
		})
	}
	return doc
}

func newVerdictDoc(v Verdict) *verdictDoc {
	doc := &verdictDoc{
		Precision:     v.Precision.String(),
		Tolerance:     number(v.Tolerance),
		Compared:      v.Compared,
		Mismatches:    v.Mismatches,
		FirstMismatch: v.FirstMismatch,
		Indices:       v.Indices,
		Expected:      v.Expected,
		Actual:        v.Actual,
		MaxAbsErr:     number(v.MaxAbsErr),
		MeanAbsErr:    number(v.MeanAbsErr()),
		TotalAbsErr:   number(v.TotalAbsErr),
		Error:         errString(v.Err),
	}
	for _, o := range v.Outputs {
		doc.Outputs = append(doc.Outputs, outputDoc{Name: o.Name, verdictDoc: *newVerdictDoc(o.Verdict)})
	}
	return doc
}

func writeJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newReportDoc(r))
}

func writeYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newReportDoc(r)); err != nil {
		return err
	}
	return enc.Close()
}
