package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chargesTotal,
		creditsDebitedTotal,
		creditsGrantedTotal,
		reconciliationsTotal,
	)
}

var (
	chargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_charges_total",
			Help: "Charge executor outcomes per app area (ok/insufficient).",
		},
		[]string{"area", "result"},
	)

	creditsDebitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_credits_debited_total",
			Help: "Sum of credits debited per app area.",
		},
		[]string{"area"},
	)

	creditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_credits_granted_total",
			Help: "Sum of credits granted by top-ups per app area.",
		},
		[]string{"area"},
	)

	reconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_reconciliations_total",
			Help: "Subscription reconciliation outcomes (none/full/overflow/fallback).",
		},
		[]string{"coverage"},
	)
)

func IncCharge(area, result string) {
	chargesTotal.WithLabelValues(norm(area), norm(result)).Inc()
}

func AddCreditsDebited(area string, n int64) {
	creditsDebitedTotal.WithLabelValues(norm(area)).Add(float64(n))
}

func AddCreditsGranted(area string, n int64) {
	creditsGrantedTotal.WithLabelValues(norm(area)).Add(float64(n))
}

func IncReconciliation(coverage string) {
	reconciliationsTotal.WithLabelValues(norm(coverage)).Inc()
}
