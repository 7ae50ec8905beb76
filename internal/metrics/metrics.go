package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionbook_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessionbook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionbook_bookings_total",
			Help: "Total number of bookings created",
		},
		[]string{"status", "funding"},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionbook_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
		[]string{"actor_role"},
	)

	BookingRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionbook_booking_rejections_total",
			Help: "Booking requests rejected, by reason",
		},
		[]string{"reason"},
	)

	CalendarSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionbook_calendar_sync_total",
			Help: "Calendar sync task outcomes",
		},
		[]string{"operation", "result"},
	)

	CalendarSyncQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessionbook_calendar_sync_queue_length",
			Help: "Current length of the calendar sync queue",
		},
	)

	PaymentEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionbook_payment_events_total",
			Help: "Payment processor webhook events, by type and result",
		},
		[]string{"type", "result"},
	)

	CreditsConsumedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionbook_credits_consumed_total",
			Help: "Total number of session credits consumed by bookings",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status, funding string) {
	BookingsTotal.WithLabelValues(status, funding).Inc()
}

func RecordBookingCancellation(actorRole string) {
	BookingCancellationsTotal.WithLabelValues(actorRole).Inc()
}

func RecordBookingRejection(reason string) {
	BookingRejectionsTotal.WithLabelValues(reason).Inc()
}

func RecordCalendarSync(operation, result string) {
	CalendarSyncTotal.WithLabelValues(operation, result).Inc()
}

func RecordPaymentEvent(eventType, result string) {
	PaymentEventsTotal.WithLabelValues(eventType, result).Inc()
}

func RecordCreditConsumed() {
	CreditsConsumedTotal.Inc()
}
