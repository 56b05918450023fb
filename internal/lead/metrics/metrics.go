package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for lead pipeline operations.
type Metrics struct {
	LeadsCreated prometheus.Counter
	StageMoves   *prometheus.CounterVec
	Reorders     prometheus.Counter
	TasksCreated prometheus.Counter
}

// New creates and registers lead metrics with the default registry.
func New() *Metrics {
	return &Metrics{
		LeadsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "noro_leads_created_total",
			Help: "Number of leads created",
		}),
		StageMoves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "noro_lead_stage_moves_total",
			Help: "Stage transitions by destination stage",
		}, []string{"to_stage"}),
		Reorders: promauto.NewCounter(prometheus.CounterOpts{
			Name: "noro_lead_reorders_total",
			Help: "Number of column reorder operations",
		}),
		TasksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "noro_lead_tasks_created_total",
			Help: "Number of follow-up tasks created",
		}),
	}
}
