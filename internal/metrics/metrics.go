// Package metrics exposes storefront counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg              *prometheus.Registry
	CartMutations    *prometheus.CounterVec
	Checkouts        *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	ClearFailures    prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_checkout_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	clearFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_cart_clear_failed_total",
		Help: "Orders persisted whose cart could not be cleared.",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
	}, []string{"method", "route", "status"})

	r.MustRegister(cartMutations, checkouts, checkoutDuration, clearFailed, httpRequests)
	return &Registry{
		reg:              r,
		CartMutations:    cartMutations,
		Checkouts:        checkouts,
		CheckoutDuration: checkoutDuration,
		ClearFailures:    clearFailed,
		HTTPRequests:     httpRequests,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) CartMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.CartMutations.WithLabelValues(op, result).Inc()
}

func (r *Registry) CheckoutFinished(outcome string, elapsed time.Duration) {
	r.Checkouts.WithLabelValues(outcome).Inc()
	r.CheckoutDuration.Observe(elapsed.Seconds())
}

func (r *Registry) CartClearFailed() { r.ClearFailures.Inc() }
