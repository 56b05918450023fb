package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"noro/internal/tenant/models"
	"noro/internal/tenant/store"
	dErrors "noro/pkg/domain-errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type recordingProvisioner struct {
	schemas []string
	err     error
}

func (p *recordingProvisioner) Provision(_ context.Context, schema string) error {
	if p.err != nil {
		return p.err
	}
	p.schemas = append(p.schemas, schema)
	return nil
}

func newService(provisioner SchemaProvisioner) *Service {
	return New(store.NewMemory(), provisioner, testLogger())
}

func TestCreateTenant(t *testing.T) {
	prov := &recordingProvisioner{}
	svc := newService(prov)

	tenant, err := svc.CreateTenant(context.Background(), models.CreateTenantRequest{
		Name: "Acme Travel",
		Slug: "acme-travel",
		Plan: models.PlanStarter,
	})
	if err != nil {
		t.Fatalf("unexpected error creating tenant: %v", err)
	}
	if tenant.SchemaName != "t_acme_travel" {
		t.Fatalf("expected schema t_acme_travel, got %s", tenant.SchemaName)
	}
	if tenant.Status != models.TenantStatusTrial {
		t.Fatalf("expected new tenant on trial, got %s", tenant.Status)
	}
	if len(prov.schemas) != 1 || prov.schemas[0] != "t_acme_travel" {
		t.Fatalf("expected schema to be provisioned, got %v", prov.schemas)
	}
}

func TestCreateTenantDuplicateSlug(t *testing.T) {
	svc := newService(&recordingProvisioner{})

	req := models.CreateTenantRequest{Name: "Acme", Slug: "acme", Plan: models.PlanStarter}
	if _, err := svc.CreateTenant(context.Background(), req); err != nil {
		t.Fatalf("unexpected error creating tenant: %v", err)
	}
	_, err := svc.CreateTenant(context.Background(), req)
	if !dErrors.HasCode(err, dErrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate slug, got %v", err)
	}
}

func TestCreateTenantProvisioningFailure(t *testing.T) {
	svc := newService(&recordingProvisioner{err: errors.New("disk full")})

	_, err := svc.CreateTenant(context.Background(), models.CreateTenantRequest{
		Name: "Acme", Slug: "acme", Plan: models.PlanStarter,
	})
	if !dErrors.HasCode(err, dErrors.CodePartialFailure) {
		t.Fatalf("expected partial failure when record exists but schema does not, got %v", err)
	}
}

func TestDeactivateReactivate(t *testing.T) {
	svc := newService(&recordingProvisioner{})
	tenant, err := svc.CreateTenant(context.Background(), models.CreateTenantRequest{
		Name: "Acme", Slug: "acme", Plan: models.PlanStarter,
	})
	if err != nil {
		t.Fatalf("unexpected error creating tenant: %v", err)
	}

	deactivated, err := svc.Deactivate(context.Background(), tenant.ID)
	if err != nil {
		t.Fatalf("unexpected error deactivating: %v", err)
	}
	if deactivated.Status != models.TenantStatusInactive {
		t.Fatalf("expected inactive, got %s", deactivated.Status)
	}

	if _, err := svc.Deactivate(context.Background(), tenant.ID); !dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		t.Fatalf("expected invariant violation deactivating twice, got %v", err)
	}

	reactivated, err := svc.Reactivate(context.Background(), tenant.ID)
	if err != nil {
		t.Fatalf("unexpected error reactivating: %v", err)
	}
	if reactivated.Status != models.TenantStatusActive {
		t.Fatalf("expected active after reactivation, got %s", reactivated.Status)
	}
}

func TestUpdatePlanConvertsTrial(t *testing.T) {
	svc := newService(&recordingProvisioner{})
	tenant, _ := svc.CreateTenant(context.Background(), models.CreateTenantRequest{
		Name: "Acme", Slug: "acme", Plan: models.PlanStarter,
	})

	updated, err := svc.UpdatePlan(context.Background(), tenant.ID, models.UpdatePlanRequest{Plan: models.PlanPro})
	if err != nil {
		t.Fatalf("unexpected error updating plan: %v", err)
	}
	if updated.Plan != models.PlanPro {
		t.Fatalf("expected plan pro, got %s", updated.Plan)
	}
	if updated.Status != models.TenantStatusActive {
		t.Fatalf("expected trial tenant to convert to active on paid plan, got %s", updated.Status)
	}
}

func TestStats(t *testing.T) {
	svc := newService(&recordingProvisioner{})

	first, _ := svc.CreateTenant(context.Background(), models.CreateTenantRequest{Name: "A", Slug: "aaa", Plan: models.PlanStarter})
	second, _ := svc.CreateTenant(context.Background(), models.CreateTenantRequest{Name: "B", Slug: "bbb", Plan: models.PlanStarter})
	_, _ = svc.CreateTenant(context.Background(), models.CreateTenantRequest{Name: "C", Slug: "ccc", Plan: models.PlanStarter})

	if _, err := svc.UpdatePlan(context.Background(), first.ID, models.UpdatePlanRequest{Plan: models.PlanPro}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Deactivate(context.Background(), second.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error fetching stats: %v", err)
	}
	if stats.Total != 3 || stats.Active != 1 || stats.Trial != 1 || stats.Inactive != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
