package payments

import "github.com/prometheus/client_golang/prometheus"

var paymentOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payment_processed_total",
		Help: "Total number of payment reconciliations by outcome",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(paymentOutcomes)
}

func recordOutcome(outcome string) {
	paymentOutcomes.WithLabelValues(outcome).Inc()
}
