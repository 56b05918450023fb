package models

import (
	"regexp"
	"strings"
	"time"

	id "noro/pkg/domain"
	dErrors "noro/pkg/domain-errors"
)

// TenantStatus is the lifecycle state of a tenant. Tenants are never hard
// deleted; deactivation is a status change.
type TenantStatus string

const (
	TenantStatusTrial    TenantStatus = "trial"
	TenantStatusActive   TenantStatus = "active"
	TenantStatusInactive TenantStatus = "inactive"
)

// Plan is the subscription plan assigned to a tenant.
type Plan string

const (
	PlanStarter    Plan = "starter"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// ValidPlan reports whether p is a known plan.
func ValidPlan(p Plan) bool {
	switch p {
	case PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// validSlug constrains tenant slugs to URL-safe lowercase identifiers. The
// 61-char cap keeps the derived schema name (t_ prefix) inside postgres's
// 63-byte identifier limit, so a slug that passes here always provisions.
var validSlug = regexp.MustCompile(`^[a-z][a-z0-9-]{1,60}$`)

// Tenant is one customer account. The slug is globally unique and immutable
// after creation; the schema name is assigned once at provisioning and never
// changes.
type Tenant struct {
	ID         id.TenantID  `json:"id"`
	Name       string       `json:"name"`
	Slug       string       `json:"slug"`
	SchemaName string       `json:"schema_name"`
	Status     TenantStatus `json:"status"`
	Plan       Plan         `json:"plan"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive || t.Status == TenantStatusTrial
}

// Deactivate transitions the tenant to inactive status.
// Returns an error if the tenant is already inactive.
func (t *Tenant) Deactivate(now time.Time) error {
	if t.Status == TenantStatusInactive {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already inactive")
	}
	t.Status = TenantStatusInactive
	t.UpdatedAt = now
	return nil
}

// Reactivate transitions the tenant back to active status.
// Returns an error if the tenant is not inactive.
func (t *Tenant) Reactivate(now time.Time) error {
	if t.Status != TenantStatusInactive {
		return dErrors.New(dErrors.CodeInvariantViolation, "tenant is already active")
	}
	t.Status = TenantStatusActive
	t.UpdatedAt = now
	return nil
}

// ChangePlan moves the tenant to a new subscription plan. A tenant on trial
// converts to active when a paid plan is assigned.
func (t *Tenant) ChangePlan(plan Plan, now time.Time) error {
	if !ValidPlan(plan) {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown plan")
	}
	if t.Status == TenantStatusInactive {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot change plan of inactive tenant")
	}
	t.Plan = plan
	if t.Status == TenantStatusTrial {
		t.Status = TenantStatusActive
	}
	t.UpdatedAt = now
	return nil
}

// NewTenant validates the identity fields and derives the schema name from
// the slug. New tenants start on trial.
func NewTenant(tenantID id.TenantID, name, slug string, plan Plan, now time.Time) (*Tenant, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant name must be 128 characters or less")
	}
	if !validSlug.MatchString(slug) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenant slug must be lowercase letters, digits, and dashes")
	}
	if !ValidPlan(plan) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown plan")
	}
	return &Tenant{
		ID:         tenantID,
		Name:       name,
		Slug:       slug,
		SchemaName: SchemaNameForSlug(slug),
		Status:     TenantStatusTrial,
		Plan:       plan,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SchemaNameForSlug derives the tenant's schema name. Dashes are not legal in
// our schema identifier pattern, so they map to underscores.
func SchemaNameForSlug(slug string) string {
	return "t_" + strings.ReplaceAll(slug, "-", "_")
}

// Stats aggregates tenant counts by lifecycle status for the admin dashboard.
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Trial    int `json:"trial"`
	Inactive int `json:"inactive"`
}
