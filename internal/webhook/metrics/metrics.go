package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the webhook pipeline.
type Metrics struct {
	Deliveries      *prometheus.CounterVec
	ForwardDuration prometheus.Histogram
}

// New creates and registers webhook metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		Deliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "noro_webhook_deliveries_total",
			Help: "Webhook deliveries by provider and outcome",
		}, []string{"provider", "outcome"}),
		ForwardDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "noro_webhook_forward_duration_seconds",
			Help:    "Latency of forwarding events to the processor",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
}
