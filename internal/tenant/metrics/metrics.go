package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for tenant operations.
type Metrics struct {
	TenantsCreated     prometheus.Counter
	TenantsDeactivated prometheus.Counter
	ResolveTotal       *prometheus.CounterVec
	ResolveDuration    prometheus.Histogram
}

// New creates and registers tenant metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		TenantsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "noro_tenants_created_total",
			Help: "Number of tenants provisioned",
		}),
		TenantsDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "noro_tenants_deactivated_total",
			Help: "Number of tenants deactivated",
		}),
		ResolveTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "noro_tenant_resolve_total",
			Help: "Tenant resolutions by outcome",
		}, []string{"outcome"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "noro_tenant_resolve_duration_seconds",
			Help:    "Latency of tenant slug resolution",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
	}
}

// ObserveResolve records one resolution outcome. Safe to call on a nil
// receiver so tests can run without a registry.
func (m *Metrics) ObserveResolve(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ResolveTotal.WithLabelValues(outcome).Inc()
	m.ResolveDuration.Observe(duration.Seconds())
}
