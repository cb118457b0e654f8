// Package metrics holds the Prometheus collectors exposed on the metrics port.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "letterly_http_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letterly_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	// Realtime
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "letterly_ws_connections_active",
			Help: "Currently connected websocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letterly_ws_messages_sent_total",
			Help: "Events delivered to websocket clients",
		},
		[]string{"event"},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "letterly_ws_messages_dropped_total",
			Help: "Events dropped because a client send buffer was full",
		},
	)

	RelayPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letterly_relay_publish_errors_total",
			Help: "Failed publishes to the cross-instance relay",
		},
		[]string{"broker"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "letterly_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Notifications
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letterly_notifications_created_total",
			Help: "Persisted notifications by type",
		},
		[]string{"type"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "letterly_notification_failures_total",
			Help: "Notification persistence or emit failures",
		},
		[]string{"stage"},
	)

	// Scheduler
	LettersPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "letterly_scheduled_letters_published_total",
			Help: "Scheduled letters promoted to published",
		},
	)
)

// RecordAPIRequest records one completed request.
func RecordAPIRequest(method, route string, status int, d time.Duration) {
	s := strconv.Itoa(status)
	APIRequestDuration.WithLabelValues(method, route, s).Observe(d.Seconds())
	APIRequestsTotal.WithLabelValues(method, route, s).Inc()
}
