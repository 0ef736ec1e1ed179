package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups all Prometheus instruments used by the client.
//
// Instruments live on a private registry so several clients (and tests) can
// coexist in one process. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	GenerationRequests *prometheus.CounterVec
	GenerationLatency  prometheus.Histogram
	DictationSessions  *prometheus.CounterVec
	DictationEvents    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		GenerationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Prompt generation request cycles by outcome.",
		}, []string{"outcome"}),
		GenerationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Round trip latency of prompt generation requests in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}),
		DictationSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dictation_sessions_total",
			Help:      "Dictation session transitions by event.",
		}, []string{"event"}),
		DictationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dictation_events_total",
			Help:      "Transcript events handled by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveGeneration(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationRequests.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.GenerationLatency.Observe(float64(d.Milliseconds()))
	}
}

func (m *Metrics) DictationSession(event string) {
	if m == nil {
		return
	}
	m.DictationSessions.WithLabelValues(event).Inc()
}

func (m *Metrics) DictationEvent(kind string) {
	if m == nil {
		return
	}
	m.DictationEvents.WithLabelValues(kind).Inc()
}

// Gatherer exposes the private registry, e.g. for promhttp or testutil.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
