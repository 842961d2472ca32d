package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Chat metrics
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	DegradedResponses  *prometheus.CounterVec

	// Session store metrics
	MessagesAppended prometheus.Counter
	SessionsSwept    prometheus.Counter

	// Upstream provider metrics
	UpstreamLatency prometheus.Histogram
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. The session gauge reads the
// live store count so it stays accurate across sweeps and clears.
func InitMetrics(store *SessionStore) *Metrics {
	metrics := &Metrics{
		ChatRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_chat_requests_total",
			Help: "Total number of chat requests processed",
		}),

		ChatRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerline_chat_request_duration_seconds",
			Help:    "End-to-end chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		DegradedResponses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerline_chat_degraded_responses_total",
			Help: "Chat responses degraded by upstream failure, by error kind",
		}, []string{"error_kind"}),

		MessagesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_session_messages_total",
			Help: "Total messages appended across all sessions",
		}),

		SessionsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_sessions_swept_total",
			Help: "Sessions removed by the expiry sweep",
		}),

		UpstreamLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerline_upstream_request_duration_seconds",
			Help:    "Completion provider request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ledgerline_sessions_active",
			Help: "Current number of live sessions in the store",
		},
		func() float64 {
			if store != nil {
				return float64(store.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (nil until InitMetrics runs)
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest() {
	if m == nil {
		return
	}
	m.ChatRequests.Inc()
}

// RecordChatLatency records end-to-end chat latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ChatRequestLatency.Observe(seconds)
}

// RecordDegradedResponse records a degraded chat response by error kind
func (m *Metrics) RecordDegradedResponse(errorKind string) {
	if m == nil {
		return
	}
	m.DegradedResponses.WithLabelValues(errorKind).Inc()
}

// RecordMessageAppended records one appended message
func (m *Metrics) RecordMessageAppended() {
	if m == nil {
		return
	}
	m.MessagesAppended.Inc()
}

// RecordSessionsSwept records sessions removed by a sweep
func (m *Metrics) RecordSessionsSwept(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(count))
}

// RecordUpstreamLatency records provider request latency
func (m *Metrics) RecordUpstreamLatency(seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamLatency.Observe(seconds)
}
