package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by the journal components.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	StaleDiscards    *prometheus.CounterVec
	CorruptSessions  prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todoc_upstream_requests_total",
			Help: "Requests sent to the records API by operation and outcome.",
		}, []string{"operation", "outcome"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoc_upstream_request_duration_seconds",
			Help:    "Records API latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),
		StaleDiscards: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todoc_stale_responses_discarded_total",
			Help: "Responses dropped because newer parameters were issued.",
		}, []string{"component"}),
		CorruptSessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "todoc_session_cache_corrupt_total",
			Help: "Session cache reads that could not be decoded and were treated as empty.",
		}),
	}
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// StaleDiscarded counts a response dropped by a staleness guard.
func (m *Metrics) StaleDiscarded(component string) {
	if m == nil {
		return
	}
	m.StaleDiscards.WithLabelValues(component).Inc()
}

// SessionCorrupt counts an undecodable session cache payload.
func (m *Metrics) SessionCorrupt() {
	if m == nil {
		return
	}
	m.CorruptSessions.Inc()
}
