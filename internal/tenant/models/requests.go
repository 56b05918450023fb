package models

import (
	"strings"

	dErrors "noro/pkg/domain-errors"
)

// CreateTenantRequest is the admin payload to provision a new tenant.
type CreateTenantRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan Plan   `json:"plan"`
}

func (r *CreateTenantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	if r.Plan == "" {
		r.Plan = PlanStarter
	}
}

func (r *CreateTenantRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.Slug == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "slug is required")
	}
	if !validSlug.MatchString(r.Slug) {
		return dErrors.New(dErrors.CodeInvalidInput, "slug must be lowercase letters, digits, and dashes")
	}
	if !ValidPlan(r.Plan) {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown plan")
	}
	return nil
}

// UpdatePlanRequest changes a tenant's subscription plan.
type UpdatePlanRequest struct {
	Plan Plan `json:"plan"`
}

func (r *UpdatePlanRequest) Normalize() {
	r.Plan = Plan(strings.ToLower(strings.TrimSpace(string(r.Plan))))
}

func (r *UpdatePlanRequest) Validate() error {
	if !ValidPlan(r.Plan) {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown plan")
	}
	return nil
}
