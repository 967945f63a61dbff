// Package monitoring provides Prometheus metrics for the conversation
// pipeline
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Phase labels for recommendation backend requests
const (
	PhaseAnalysis = "analysis"
	PhaseCooking  = "cooking"
)

// Outcome labels
const (
	OutcomeOK            = "ok"
	OutcomeTransport     = "transport_error"
	OutcomeBackend       = "backend_error"
	OutcomeNormalization = "normalization_fallback"
)

// Metrics handles Prometheus metrics collection
type Metrics struct {
	registry *prometheus.Registry

	// Recommendation backend metrics
	phaseRequestsTotal   *prometheus.CounterVec
	phaseRequestDuration *prometheus.HistogramVec

	// Persistence metrics
	savesTotal          *prometheus.CounterVec
	savesCoalescedTotal prometheus.Counter
	savesSuppressed     prometheus.Counter

	// Normalizer metrics
	normalizerFallbacks prometheus.Counter
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		phaseRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommendation_requests_total",
				Help: "Total number of recommendation backend requests",
			},
			[]string{"phase", "outcome"},
		),
		phaseRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recommendation_request_duration_seconds",
				Help:    "Recommendation backend request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),

		savesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transcript_saves_total",
				Help: "Total number of transcript save attempts",
			},
			[]string{"outcome"},
		),
		savesCoalescedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "transcript_saves_coalesced_total",
				Help: "Save requests coalesced into a pending save",
			},
		),
		savesSuppressed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "transcript_saves_suppressed_total",
				Help: "Forced saves suppressed by the cooldown window",
			},
		),

		normalizerFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "normalizer_fallbacks_total",
				Help: "Backend payloads that degraded to stringified output",
			},
		),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPhaseRequest records a backend request outcome and duration
func (m *Metrics) RecordPhaseRequest(phase, outcome string, duration time.Duration) {
	m.phaseRequestsTotal.WithLabelValues(phase, outcome).Inc()
	m.phaseRequestDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordSave records a transcript save attempt outcome
func (m *Metrics) RecordSave(outcome string) {
	m.savesTotal.WithLabelValues(outcome).Inc()
}

// RecordSaveCoalesced records a save request merged into a pending save
func (m *Metrics) RecordSaveCoalesced() {
	m.savesCoalescedTotal.Inc()
}

// RecordSaveSuppressed records a forced save skipped by the cooldown
func (m *Metrics) RecordSaveSuppressed() {
	m.savesSuppressed.Inc()
}

// RecordNormalizerFallback records a payload that could not be classified
func (m *Metrics) RecordNormalizerFallback() {
	m.normalizerFallbacks.Inc()
}
