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

	// GatewayDuration tracks AI gateway call duration.
	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_gateway_duration_seconds",
			Help:    "AI gateway call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// MessagesTotal tracks messages appended to conversation logs.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages appended",
		},
		[]string{"sender", "error"},
	)

	// QuotaBlockedTotal tracks sends blocked by the daily quota.
	QuotaBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_blocked_sends_total",
			Help: "Sends blocked by the daily message quota",
		},
	)

	// SessionsActive tracks open chat sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of open chat sessions",
		},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_created_total",
			Help: "Total conversations created",
		},
	)

	// StoreErrorsTotal tracks key-value store failures by operation.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kv_store_errors_total",
			Help: "Key-value store failures",
		},
		[]string{"op"},
	)

	// ReportsTotal tracks submitted message reports.
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_reports_total",
			Help: "Total message reports submitted",
		},
		[]string{"status"},
	)

	// EntitlementChecks tracks entitlement oracle lookups.
	EntitlementChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_checks_total",
			Help: "Entitlement oracle lookups",
		},
		[]string{"result"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGatewayCall records metrics for an AI gateway call.
func RecordGatewayCall(provider, status string, duration float64) {
	GatewayDuration.WithLabelValues(provider, status).Observe(duration)
}
