package kbench

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes per-implementation results as Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	roi        *prometheus.GaugeVec
	warmup     *prometheus.GaugeVec
	funcTime   *prometheus.GaugeVec
	mismatches *prometheus.GaugeVec
	results    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		roi: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kbench",
			Name:      "roi_microseconds",
			Help:      "Elapsed time of the measured phase",
		}, []string{"impl"}),
		warmup: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kbench",
			Name:      "warmup_microseconds",
			Help:      "Elapsed time of the warmup phase",
		}, []string{"impl"}),
		funcTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kbench",
			Name:      "func_microseconds",
			Help:      "Elapsed time of the whole invocation",
		}, []string{"impl"}),
		mismatches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kbench",
			Name:      "mismatches",
			Help:      "Output elements outside tolerance",
		}, []string{"impl"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kbench",
			Name:      "results_total",
			Help:      "Implementation results by status",
		}, []string{"impl", "status"}),
	}

	if err := register(reg, &m.roi); err != nil {
		return nil, err
	}
	if err := register(reg, &m.warmup); err != nil {
		return nil, err
	}
	if err := register(reg, &m.funcTime); err != nil {
		return nil, err
	}
	if err := register(reg, &m.mismatches); err != nil {
		return nil, err
	}
	if err := register(reg, &m.results); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return NewConfigError("NewMetrics", err.Error())
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return NewConfigError("NewMetrics", err.Error())
		}
		*c = existing
	}
	return nil
}

// Observe records one result
func (m *Metrics) Observe(res Result) {
	if m == nil {
		return
	}
	m.roi.WithLabelValues(res.Name).Set(res.ROIMicros)
	m.warmup.WithLabelValues(res.Name).Set(res.WarmupMicros)
	m.funcTime.WithLabelValues(res.Name).Set(res.FuncMicros)
	if res.Verdict != nil {
		m.mismatches.WithLabelValues(res.Name).Set(float64(res.Verdict.Mismatches))
	}
	m.results.WithLabelValues(res.Name, string(res.Status())).Inc()
}
