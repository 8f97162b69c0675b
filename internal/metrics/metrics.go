// Package metrics holds the Prometheus collectors for the dashboard pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dashboard"

// Metrics groups the pipeline counters.
type Metrics struct {
	registry *prometheus.Registry

	RowsParsed          prometheus.Counter
	RowsRejected        prometheus.Counter
	ParseErrors         prometheus.Counter
	SampleFetchFailures prometheus.Counter
	CaptureFailures     *prometheus.CounterVec
	ReportsGenerated    prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Rows accepted by the CSV parser.",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Rows dropped by the CSV parser for a missing date, missing category or bad amount.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "CSV inputs rejected as structurally malformed.",
		}),
		SampleFetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_fetch_failures_total",
			Help:      "Failed sample dataset loads.",
		}),
		CaptureFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_capture_failures_total",
			Help:      "Charts left out of a report because rendering failed.",
		}, []string{"chart"}),
		ReportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_generated_total",
			Help:      "PDF reports written.",
		}),
	}
	m.registry.MustRegister(
		m.RowsParsed,
		m.RowsRejected,
		m.ParseErrors,
		m.SampleFetchFailures,
		m.CaptureFailures,
		m.ReportsGenerated,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveParse records the outcome of one parse.
func (m *Metrics) ObserveParse(accepted, rejected int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ParseErrors.Inc()
		return
	}
	m.RowsParsed.Add(float64(accepted))
	m.RowsRejected.Add(float64(rejected))
}

// SampleFetchFailed counts a failed sample load.
func (m *Metrics) SampleFetchFailed() {
	if m == nil {
		return
	}
	m.SampleFetchFailures.Inc()
}

// CaptureFailed counts a chart omitted from a report.
func (m *Metrics) CaptureFailed(chart string) {
	if m == nil {
		return
	}
	m.CaptureFailures.WithLabelValues(chart).Inc()
}

// ReportGenerated counts a written report.
func (m *Metrics) ReportGenerated() {
	if m == nil {
		return
	}
	m.ReportsGenerated.Inc()
}
