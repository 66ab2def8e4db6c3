// Package metrics defines the Prometheus collectors the storefront exports.
// Every collector type is nil-safe so callers can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every storefront metric name.
const Namespace = "storefront"

func label(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func factory(reg prometheus.Registerer) promauto.Factory {
	return promauto.With(reg)
}
