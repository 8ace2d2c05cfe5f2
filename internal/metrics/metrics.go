package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loungebook",
			Name:      "booking_accepted_total",
			Help:      "Count of committed reservations by resource kind.",
		},
		[]string{"kind"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loungebook",
			Name:      "booking_rejected_total",
			Help:      "Count of rejected booking attempts by reason.",
		},
		[]string{"reason"},
	)

	availabilityQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loungebook",
			Name:      "availability_queries_total",
			Help:      "Count of availability enumerations by operation.",
		},
		[]string{"op"},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loungebook",
			Name:      "status_transition_total",
			Help:      "Count of reservation status transitions.",
		},
		[]string{"to"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAccepted, bookingRejected, availabilityQueries, statusTransitions)
	})
}

func IncBookingAccepted(kind string) {
	bookingAccepted.WithLabelValues(kind).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncAvailabilityQuery(op string) {
	availabilityQueries.WithLabelValues(op).Inc()
}

func IncStatusTransition(to string) {
	statusTransitions.WithLabelValues(to).Inc()
}
