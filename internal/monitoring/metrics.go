// Package monitoring exposes Prometheus metrics for searches, retrieval
// channels and enrichment.
package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
)

// Metrics holds the collectors. A nil *Metrics records nothing, so callers
// never need to check whether metrics are enabled.
type Metrics struct {
	channelAttempts *prometheus.CounterVec
	enrichments     *prometheus.CounterVec
	demoFallbacks   *prometheus.CounterVec
	searchLatency   prometheus.Histogram
	httpRequests    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		channelAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizfinder",
			Name:      "channel_attempts_total",
			Help:      "Retrieval attempts by channel and outcome.",
		}, []string{"channel", "outcome"}),
		enrichments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizfinder",
			Name:      "email_enrichments_total",
			Help:      "Contact email lookups by outcome.",
		}, []string{"outcome"}),
		demoFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizfinder",
			Name:      "demo_fallbacks_total",
			Help:      "Searches answered with demo data, by reason.",
		}, []string{"reason"}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bizfinder",
			Name:      "search_duration_seconds",
			Help:      "End-to-end page retrieval latency including enrichment.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizfinder",
			Name:      "http_requests_total",
			Help:      "Backend requests by route pattern and status code.",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(m.channelAttempts, m.enrichments, m.demoFallbacks, m.searchLatency, m.httpRequests)
	return m
}

// ChannelAttempt records one retrieval attempt.
func (m *Metrics) ChannelAttempt(channel string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeFailure
	if ok {
		outcome = OutcomeSuccess
	}
	m.channelAttempts.WithLabelValues(channel, outcome).Inc()
}

// Enrichment records one email lookup.
func (m *Metrics) Enrichment(found bool) {
	if m == nil {
		return
	}
	outcome := OutcomeNotFound
	if found {
		outcome = OutcomeFound
	}
	m.enrichments.WithLabelValues(outcome).Inc()
}

// DemoFallback records a search answered with demo data.
func (m *Metrics) DemoFallback(reason string) {
	if m == nil {
		return
	}
	m.demoFallbacks.WithLabelValues(reason).Inc()
}

// ObserveSearch records the latency of a page retrieval started at start.
func (m *Metrics) ObserveSearch(start time.Time) {
	if m == nil {
		return
	}
	m.searchLatency.Observe(time.Since(start).Seconds())
}

// HTTPRequest records one served backend request.
func (m *Metrics) HTTPRequest(route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
