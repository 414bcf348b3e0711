package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	bookingTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Total number of applied booking transitions",
		},
		[]string{"action"},
	)

	paymentsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_processed_total",
			Help: "Total number of payments that reached a terminal status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(bookingTransitionsTotal)
	prometheus.MustRegister(paymentsProcessedTotal)
}

func RecordBookingTransition(action string) {
	bookingTransitionsTotal.WithLabelValues(action).Inc()
}

func RecordPaymentProcessed(status string) {
	paymentsProcessedTotal.WithLabelValues(status).Inc()
}
