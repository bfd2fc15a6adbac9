// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service collectors.
type Metrics struct {
	TokensGenerated prometheus.Counter
	Scans           *prometheus.CounterVec
	CheckIns        *prometheus.CounterVec
	EventsProcessed *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TokensGenerated: f.NewCounter(prometheus.CounterOpts{
			Name: "qrattend_tokens_generated_total",
			Help: "QR tokens issued for sessions.",
		}),
		Scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qrattend_scans_total",
			Help: "Token verifications by result.",
		}, []string{"result"}),
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qrattend_checkins_total",
			Help: "Check-in attempts by outcome.",
		}, []string{"outcome"}),
		EventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qrattend_events_processed_total",
			Help: "Check-in events handled by the processor.",
		}, []string{"result"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qrattend_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Outcome labels for check-ins.
const (
	OutcomePresent  = "present"
	OutcomeLate     = "late"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// ObserveEvent counts a processed event; it matches the events processor callback shape.
func (m *Metrics) ObserveEvent(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.EventsProcessed.WithLabelValues("error").Inc()
		return
	}
	m.EventsProcessed.WithLabelValues("ok").Inc()
}
