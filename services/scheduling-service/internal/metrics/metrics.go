package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scheduling"

var (
	once sync.Once

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_created_total",
			Help:      "Count of bookings created.",
		},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejected_total",
			Help:      "Count of booking attempts refused, by conflict cause.",
		},
		[]string{"cause"},
	)

	statusChanged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_changed_total",
			Help:      "Count of booking status transitions, by target status.",
		},
		[]string{"status"},
	)

	blackoutChanged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blackout_days_changed_total",
			Help:      "Count of blackout days set or cleared.",
		},
		[]string{"op"},
	)

	outboxPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Count of outbox events relayed to Kafka.",
		},
	)

	decisionsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_consumed_total",
			Help:      "Count of booking decisions consumed, by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingRejected, statusChanged, blackoutChanged, outboxPublished, decisionsConsumed)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncBookingRejected(cause string) {
	bookingRejected.WithLabelValues(cause).Inc()
}

func IncStatusChanged(status string) {
	statusChanged.WithLabelValues(status).Inc()
}

func AddBlackoutChanged(op string, n int) {
	blackoutChanged.WithLabelValues(op).Add(float64(n))
}

func AddOutboxPublished(n int) {
	outboxPublished.Add(float64(n))
}

func IncDecisionConsumed(result string) {
	decisionsConsumed.WithLabelValues(result).Inc()
}
