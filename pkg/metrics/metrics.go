// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_conversations_total",
			Help: "Total conversations created",
		},
	)

	// MessagesTotal tracks total messages accepted by the backend.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages sent",
		},
		[]string{"sender"},
	)

	// PushEventsTotal tracks push events processed by live listeners.
	PushEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_push_events_total",
			Help: "Push events processed by live update listeners",
		},
		[]string{"table", "operation", "outcome"},
	)

	// OptimisticRollbacksTotal tracks optimistic mutations rolled back
	// after a failed backend call.
	OptimisticRollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_optimistic_rollbacks_total",
			Help: "Optimistic mutations rolled back on backend failure",
		},
		[]string{"operation"},
	)

	// LiveListenersActive tracks active push channel subscriptions.
	LiveListenersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_live_listeners_active",
			Help: "Number of active push channel subscriptions",
		},
	)

	// MarkReadFailuresTotal tracks failed fire-and-forget mark-read calls.
	MarkReadFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_mark_read_failures_total",
			Help: "Failed best-effort mark-read calls",
		},
	)

	// SuggestDuration tracks reply suggestion latency.
	SuggestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_suggest_duration_seconds",
			Help:    "Reply suggestion latency",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordPushEvent records the outcome of one processed push event.
func RecordPushEvent(table, operation, outcome string) {
	PushEventsTotal.WithLabelValues(table, operation, outcome).Inc()
}

// RecordRollback records an optimistic mutation rollback.
func RecordRollback(operation string) {
	OptimisticRollbacksTotal.WithLabelValues(operation).Inc()
}

// RecordSuggest records a reply suggestion attempt.
func RecordSuggest(provider, status string, duration float64) {
	SuggestDuration.WithLabelValues(provider, status).Observe(duration)
}
