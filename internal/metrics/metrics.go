package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the sender
type Metrics struct {
	RecipientsTotal *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	RunProgress     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RecipientsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulksender_recipients_total",
				Help: "Total number of processed recipients by outcome",
			},
			[]string{"outcome"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulksender_runs_total",
				Help: "Total number of finished runs by result",
			},
			[]string{"result"},
		),
		RunProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bulksender_run_progress_percent",
				Help: "Progress of the current run in percent",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.RecipientsTotal,
		m.RunsTotal,
		m.RunProgress,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOutcome counts one processed recipient
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.RecipientsTotal.WithLabelValues(outcome).Inc()
}

// SetProgress sets the progress gauge
func (m *Metrics) SetProgress(percent int) {
	if m == nil {
		return
	}
	m.RunProgress.Set(float64(percent))
}

// RunFinished counts one finished run
func (m *Metrics) RunFinished(result string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(result).Inc()
}

// Handler returns the HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
