package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "showroom"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by handler and status code.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"handler", "code"},
	)

	appointmentsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_submitted_total",
			Help:      "Count of test-drive submissions by outcome.",
		},
		[]string{"outcome"},
	)

	appointmentStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_status_changes_total",
			Help:      "Count of appointment status changes by new status.",
		},
		[]string{"status"},
	)

	scheduleSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_saves_total",
			Help:      "Count of schedule configuration saves by result.",
		},
		[]string{"result"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_cache_lookups_total",
			Help:      "Schedule cache lookups by result.",
		},
		[]string{"result"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Manager notifications by channel and status.",
		},
		[]string{"channel", "status"},
	)

	backups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_total",
			Help:      "Database backups by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests, httpDuration,
			appointmentsSubmitted, appointmentStatus, scheduleSaves,
			cacheLookups, notificationsSent, backups,
		)
	})
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func ObserveHTTP(handler, code string, d time.Duration) {
	httpDuration.WithLabelValues(handler, code).Observe(d.Seconds())
}

// IncSubmission counts a booking submission. outcome is "created", "rejected" or "error".
func IncSubmission(outcome string) {
	appointmentsSubmitted.WithLabelValues(outcome).Inc()
}

func IncStatusChange(status string) {
	appointmentStatus.WithLabelValues(status).Inc()
}

func IncScheduleSave(result string) {
	scheduleSaves.WithLabelValues(result).Inc()
}

func IncCache(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func IncNotification(channel, status string) {
	notificationsSent.WithLabelValues(channel, status).Inc()
}

func IncBackup(result string) {
	backups.WithLabelValues(result).Inc()
}
