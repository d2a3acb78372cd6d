// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_attempts_total",
			Help: "Total number of notification render attempts",
		},
		[]string{"notification_type", "trigger"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Total number of notification pipeline failures",
		},
		[]string{"notification_type", "step"},
	)

	NotificationsDisplayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_displayed_total",
			Help: "Total number of notifications handed to the display transport",
		},
		[]string{"notification_type", "source"},
	)

	NotificationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_skipped_total",
			Help: "Total number of triggers discarded without a render",
		},
		[]string{"reason"},
	)

	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of audit records dropped on storage failure",
		},
	)

	EventHandleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "event_handle_duration_seconds",
			Help: "Duration of inbound event handling in seconds",
		},
		[]string{"source"},
	)
)
