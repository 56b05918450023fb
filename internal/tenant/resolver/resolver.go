// Package resolver maps request slugs to tenant records. Resolution is the
// single trust boundary between the shared edge and tenant-scoped data: every
// request that touches tenant data goes through Resolve first.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"noro/internal/sentinel"
	"noro/internal/tenant/models"
	dErrors "noro/pkg/domain-errors"
)

// Store is the subset of the tenant store the resolver needs.
type Store interface {
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// Metrics is implemented by tenantmetrics.Metrics; a nil-safe subset is used
// so tests can run without a registry.
type Metrics interface {
	ObserveResolve(outcome string, duration time.Duration)
}

// Resolver resolves tenant slugs. Unknown slugs, inactive tenants, and store
// failures all produce the same not-found error so callers cannot probe which
// slugs exist; the real cause is logged server-side.
type Resolver struct {
	store   Store
	logger  *slog.Logger
	metrics Metrics
}

// Option configures the resolver.
type Option func(*Resolver)

// WithMetrics attaches resolution metrics.
func WithMetrics(m Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a resolver over the given store.
func New(store Store, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "tenant not found")
}

// Resolve looks up the tenant for slug. It performs at most one store lookup
// per call. The returned error is identical for every failure mode.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*models.Tenant, error) {
	start := time.Now()

	if slug == "" {
		r.observe("empty", start)
		return nil, notFound()
	}

	tenant, err := r.store.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			r.observe("miss", start)
			return nil, notFound()
		}
		// Store failure. Hide it from the caller but keep the cause in the
		// logs so an outage does not masquerade as a churned customer.
		r.logger.Error("tenant resolution store failure",
			"slug", slug,
			"error", err,
		)
		r.observe("error", start)
		return nil, notFound()
	}

	if tenant.Status == models.TenantStatusInactive {
		r.logger.Info("resolved inactive tenant",
			"slug", slug,
			"tenant_id", tenant.ID.String(),
		)
		r.observe("inactive", start)
		return nil, notFound()
	}

	r.observe("hit", start)
	return tenant, nil
}

func (r *Resolver) observe(outcome string, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveResolve(outcome, time.Since(start))
	}
}
