package audit

import (
	"context"
	"time"

	id "noro/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	TenantID  id.TenantID       `json:"tenant_id,omitempty"`
	UserID    id.UserID         `json:"user_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Action names recorded by the platform.
const (
	ActionTenantCreated     = "tenant_created"
	ActionTenantDeactivated = "tenant_deactivated"
	ActionTenantReactivated = "tenant_reactivated"
	ActionTenantPlanChanged = "tenant_plan_changed"
	ActionLeadCreated       = "lead_created"
	ActionLeadAssigned      = "lead_assigned"
	ActionLeadStageChanged  = "lead_stage_changed"
	ActionLeadsReordered    = "leads_reordered"
	ActionTaskCreated       = "task_created"
	ActionWebhookForwarded  = "webhook_forwarded"
)

// Sink receives finished audit events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}
