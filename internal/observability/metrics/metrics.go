package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "water_usage_"

	// ResultSuccess labels a completed run.
	ResultSuccess = "success"
	// ResultError labels a failed run.
	ResultError = "error"
)

// Source labels for loaded rows.
const (
	SourceConsents   = "consents"
	SourceAllocation = "allocation"
	SourceUsage      = "usage"
	SourceOutput     = "output"
)

// Metrics bundles pipeline metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RowsTotal    *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	RunsTotal    *prometheus.CounterVec
	LastSuccess  prometheus.Gauge
	Groups       prometheus.Gauge
}

// New constructs and registers metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rows_total",
				Help: "Total rows read or written by source",
			},
			[]string{"source"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "step_duration_seconds",
				Help:    "Pipeline step duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step", "result"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Total pipeline runs by result",
			},
			[]string{"result"},
		),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
		Groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "annual_groups",
			Help: "WAP and financial year groups in the last run",
		}),
	}
	m.registry.MustRegister(
		m.RowsTotal,
		m.StepDuration,
		m.RunsTotal,
		m.LastSuccess,
		m.Groups,
	)
	return m
}

// Registry exposes the registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddRows counts rows for a source.
func (m *Metrics) AddRows(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveStep records the duration of a pipeline step.
func (m *Metrics) ObserveStep(step string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step, resultLabel(err)).Observe(time.Since(start).Seconds())
}

// RunFinished records the run outcome.
func (m *Metrics) RunFinished(at time.Time, groups int, err error) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		m.LastSuccess.Set(float64(at.Unix()))
		m.Groups.Set(float64(groups))
	}
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
