package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.Observe(ResultPlaced, 250*time.Millisecond)
	m.Observe(ResultPlaced, 100*time.Millisecond)
	m.Observe(ResultOutOfStock, 10*time.Millisecond)
	m.IncRetry()

	orders := "storefront_checkout_orders_total"
	assert.Equal(t, 2.0, sample(t, reg, orders, map[string]string{"result": ResultPlaced}).GetCounter().GetValue())
	assert.Equal(t, 1.0, sample(t, reg, orders, map[string]string{"result": ResultOutOfStock}).GetCounter().GetValue())

	placed := sample(t, reg, "storefront_checkout_duration_seconds", map[string]string{"result": ResultPlaced}).GetHistogram()
	assert.EqualValues(t, 2, placed.GetSampleCount())
	assert.InDelta(t, 0.35, placed.GetSampleSum(), 1e-9)

	assert.Equal(t, 1.0, sample(t, reg, "storefront_checkout_transaction_retries_total", nil).GetCounter().GetValue())
}

func TestRegisteringTwiceOnOneRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCheckoutMetrics(reg)
	assert.Panics(t, func() { NewCheckoutMetrics(reg) })
}

func TestNilCheckoutMetricsIsNoop(t *testing.T) {
	var m *CheckoutMetrics
	m.Observe(ResultError, time.Second)
	m.IncRetry()
	assert.Nil(t, NewCheckoutMetrics(nil))
}
