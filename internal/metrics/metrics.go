// Package metrics exposes Prometheus collectors for model calls and builds.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "twaforge"

// Outcome labels for model calls.
const (
	OutcomeOK                = "ok"
	OutcomeMissingCredential = "missing_credential"
	OutcomeServiceError      = "service_error"
)

type Metrics struct {
	registry     *prometheus.Registry
	modelCalls   *prometheus.CounterVec
	modelLatency *prometheus.HistogramVec
	builds       *prometheus.CounterVec
	historySize  prometheus.Gauge
}

// New builds collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Generative model calls by call and outcome.",
		}, []string{"call", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Latency of generative model calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"call"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_builds_total",
			Help:      "Wizard build attempts by result.",
		}, []string{"result"}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_entries",
			Help:      "Entries currently held in the build history.",
		}),
	}
	m.registry.MustRegister(m.modelCalls, m.modelLatency, m.builds, m.historySize)
	return m
}

// ObserveModelCall records one call. Safe on a nil receiver.
func (m *Metrics) ObserveModelCall(call, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(call, outcome).Inc()
	m.modelLatency.WithLabelValues(call).Observe(d.Seconds())
}

func (m *Metrics) ObserveBuild(result string) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(result).Inc()
}

func (m *Metrics) SetHistorySize(n int) {
	if m == nil {
		return
	}
	m.historySize.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ModelCalls returns the counter for one call/outcome pair.
func (m *Metrics) ModelCalls(call, outcome string) prometheus.Counter {
	return m.modelCalls.WithLabelValues(call, outcome)
}

func (m *Metrics) Builds(result string) prometheus.Counter {
	return m.builds.WithLabelValues(result)
}

func (m *Metrics) HistorySize() prometheus.Gauge {
	return m.historySize
}
