// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	EventsConsumed    prometheus.Counter
	EventsCommitted   prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	PaymentsCreated   *prometheus.CounterVec
	PublishFailures   prometheus.Counter
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_consumed_total",
			Help:      "Order notifications fetched from the inbound topic.",
		}),
		EventsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_committed_total",
			Help:      "Order notifications acknowledged back to the broker.",
		}),
		DuplicatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_duplicates_total",
			Help:      "Redelivered order notifications acknowledged without effect.",
		}),
		PaymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_created_total",
			Help:      "Payments finalized, labeled by terminal status.",
		}, []string{"status"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_publish_failures_total",
			Help:      "Payment events lost to broker-side send failures.",
		}),
	}
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
