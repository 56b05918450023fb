// Package service implements tenant lifecycle operations: provisioning,
// deactivation, plan changes, and fleet statistics.
package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"noro/internal/sentinel"
	"noro/internal/tenant/metrics"
	"noro/internal/tenant/models"
	id "noro/pkg/domain"
	dErrors "noro/pkg/domain-errors"
	"noro/pkg/platform/audit"
	"noro/pkg/platform/middleware/admin"
	"noro/pkg/requestcontext"
)

// Store is the persistence interface for tenant records.
type Store interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	CountByStatus(ctx context.Context, status models.TenantStatus) (int, error)
	Count(ctx context.Context) (int, error)
}

// SchemaProvisioner creates the tenant's isolated schema and tables.
type SchemaProvisioner interface {
	Provision(ctx context.Context, schema string) error
}

// NoopProvisioner satisfies SchemaProvisioner without touching a database.
// Used when running against the in-memory stores.
type NoopProvisioner struct{}

func (NoopProvisioner) Provision(context.Context, string) error { return nil }

// AuditPublisher records admin actions on tenants.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates tenant operations.
type Service struct {
	store       Store
	provisioner SchemaProvisioner
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       AuditPublisher
}

// Option configures the service.
type Option func(*Service)

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditPublisher attaches an audit event publisher.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

// New creates a tenant service.
func New(store Store, provisioner SchemaProvisioner, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		provisioner: provisioner,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTenant provisions a new tenant: the control-schema record first, then
// the tenant's isolated schema. Provisioning is idempotent, so a tenant left
// in a half-provisioned state can be repaired by retrying.
func (s *Service) CreateTenant(ctx context.Context, req models.CreateTenantRequest) (*models.Tenant, error) {
	now := requestcontext.Now(ctx)

	tenant, err := models.NewTenant(id.NewTenantID(), req.Name, req.Slug, req.Plan, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "slug already in use")
		}
		s.logger.Error("tenant create failed", "slug", tenant.Slug, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}

	if err := s.provisioner.Provision(ctx, tenant.SchemaName); err != nil {
		// The record exists but the schema does not. Surface a distinct code
		// so the operator knows to re-run provisioning rather than re-create.
		s.logger.Error("schema provisioning failed",
			"tenant_id", tenant.ID.String(),
			"schema", tenant.SchemaName,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodePartialFailure, "tenant created but schema provisioning failed")
	}

	if s.metrics != nil {
		s.metrics.TenantsCreated.Inc()
	}
	s.emitAudit(ctx, tenant, audit.ActionTenantCreated, map[string]string{
		"slug": tenant.Slug,
		"plan": string(tenant.Plan),
	})

	s.logger.Info("tenant provisioned",
		"tenant_id", tenant.ID.String(),
		"slug", tenant.Slug,
		"schema", tenant.SchemaName,
	)
	return tenant, nil
}

// GetTenant fetches a tenant by ID.
func (s *Service) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := s.store.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch tenant")
	}
	return tenant, nil
}

// Deactivate marks a tenant inactive. Its data stays in place; the resolver
// simply stops resolving its slug.
func (s *Service) Deactivate(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := tenant.Deactivate(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.update(ctx, tenant); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TenantsDeactivated.Inc()
	}
	s.emitAudit(ctx, tenant, audit.ActionTenantDeactivated, nil)
	return tenant, nil
}

// Reactivate returns an inactive tenant to active status.
func (s *Service) Reactivate(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := tenant.Reactivate(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.update(ctx, tenant); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, tenant, audit.ActionTenantReactivated, nil)
	return tenant, nil
}

// UpdatePlan changes a tenant's subscription plan.
func (s *Service) UpdatePlan(ctx context.Context, tenantID id.TenantID, req models.UpdatePlanRequest) (*models.Tenant, error) {
	tenant, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	from := tenant.Plan
	if err := tenant.ChangePlan(req.Plan, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.update(ctx, tenant); err != nil {
		return nil, err
	}

	s.emitAudit(ctx, tenant, audit.ActionTenantPlanChanged, map[string]string{
		"from": string(from),
		"to":   string(tenant.Plan),
	})
	return tenant, nil
}

// Stats returns tenant counts by lifecycle status. The four counts run
// concurrently; any failure fails the whole call and the handler decides how
// to degrade.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(ctx)
		stats.Total = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountByStatus(ctx, models.TenantStatusActive)
		stats.Active = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountByStatus(ctx, models.TenantStatusTrial)
		stats.Trial = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountByStatus(ctx, models.TenantStatusInactive)
		stats.Inactive = n
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count tenants")
	}
	return &stats, nil
}

func (s *Service) update(ctx context.Context, tenant *models.Tenant) error {
	if err := s.store.Update(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update tenant")
	}
	return nil
}

func (s *Service) emitAudit(ctx context.Context, tenant *models.Tenant, action string, details map[string]string) {
	if s.audit == nil {
		return
	}
	if actor := admin.GetAdminActorID(ctx); actor != "" {
		if details == nil {
			details = make(map[string]string, 1)
		}
		details["actor"] = actor
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		TenantID:  tenant.ID,
		Subject:   "tenant",
		Action:    action,
		Details:   details,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "action", action, "error", err)
	}
}
