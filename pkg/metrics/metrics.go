package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "volunteer_booking"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings moved from confirmed to cancelled.",
		},
	)

	emailDelivery = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_delivery_total",
			Help:      "Count of notification emails by type and outcome.",
		},
		[]string{"email_type", "outcome"},
	)

	reminderPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_pass_duration_seconds",
			Help:      "Duration of reminder sweep and queue drain passes.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"pass"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, emailDelivery, reminderPassDuration)
	})
}

// Handler serves the default registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncBookingCreated(outcome string) {
	bookingCreated.WithLabelValues(outcome).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncEmailDelivery(emailType, outcome string) {
	emailDelivery.WithLabelValues(emailType, outcome).Inc()
}

func ObserveReminderPass(pass string, seconds float64) {
	reminderPassDuration.WithLabelValues(pass).Observe(seconds)
}
