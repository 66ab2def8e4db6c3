package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes used as the result label.
const (
	ResultPlaced     = "placed"
	ResultOutOfStock = "out_of_stock"
	ResultEmptyCart  = "empty_cart"
	ResultRejected   = "rejected"
	ResultError      = "error"
)

// CheckoutMetrics records order placement outcomes and latency.
type CheckoutMetrics struct {
	orders   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	retries  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout collectors on reg. A nil reg
// yields a recorder that drops everything.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return nil
	}
	f := factory(reg)
	return &CheckoutMetrics{
		orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "checkout",
			Name:      "orders_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "checkout",
			Name:      "duration_seconds",
			Help:      "Latency of checkout attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "checkout",
			Name:      "transaction_retries_total",
			Help:      "Checkout transactions replayed after an order id collision or deadlock.",
		}),
	}
}

// Observe records one finished checkout attempt.
func (c *CheckoutMetrics) Observe(result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	result = label(result)
	c.orders.WithLabelValues(result).Inc()
	c.duration.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (c *CheckoutMetrics) IncRetry() {
	if c != nil {
		c.retries.Inc()
	}
}
