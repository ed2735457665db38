package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the Prometheus instruments for the chat surface.
type Metrics struct {
	TurnsTotal     *prometheus.CounterVec
	TurnDuration   prometheus.Histogram
	DocumentsTotal prometheus.Gauge
}

// New registers the instruments with the given registerer. Tests pass a
// fresh registry to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scribe_chat_turns_total",
			Help: "Chat turns processed, labeled by outcome",
		}, []string{"outcome"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scribe_chat_turn_duration_seconds",
			Help:    "End-to-end duration of chat turns including the agent call",
			Buckets: prometheus.DefBuckets,
		}),
		DocumentsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "scribe_knowledge_documents",
			Help: "Knowledge documents currently stored",
		}),
	}
}

// RecordTurn counts one finished turn and observes its duration.
func (m *Metrics) RecordTurn(outcome string, duration time.Duration) {
	m.TurnsTotal.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(duration.Seconds())
}

// SetDocuments tracks the current corpus size.
func (m *Metrics) SetDocuments(count int) {
	m.DocumentsTotal.Set(float64(count))
}
