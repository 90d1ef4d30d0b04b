package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionsExpired, subscriptionsAssigned)
}

var (
	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions finished by the expiry worker.",
		},
	)

	subscriptionsAssigned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_assigned_total",
			Help: "Subscriptions purchased or admin-assigned.",
		},
	)
)

func IncSubscriptionsExpired(n int) {
	subscriptionsExpired.Add(float64(n))
}

func IncSubscriptionAssigned() {
	subscriptionsAssigned.Inc()
}
