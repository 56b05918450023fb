package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"noro/internal/platform/database"
	"noro/internal/sentinel"
	"noro/internal/tenant/models"
	id "noro/pkg/domain"
)

const uniqueViolation = "23505"

// Postgres stores tenant records in the shared control schema. Tenant rows are
// the only cross-tenant data in the system; everything else lives in
// per-tenant schemas reached through a scoped handle.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a tenant store backed by the given pool.
func NewPostgres(pool *database.Pool) *Postgres {
	return &Postgres{db: pool.DB()}
}

func (p *Postgres) Create(ctx context.Context, tenant *models.Tenant) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, slug, schema_name, status, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tenant.ID.String(), tenant.Name, tenant.Slug, tenant.SchemaName,
		string(tenant.Status), string(tenant.Plan), tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	return p.scan(p.db.QueryRowContext(ctx, `
		SELECT id, name, slug, schema_name, status, plan, created_at, updated_at
		FROM tenants WHERE id = $1`, tenantID.String()))
}

func (p *Postgres) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	return p.scan(p.db.QueryRowContext(ctx, `
		SELECT id, name, slug, schema_name, status, plan, created_at, updated_at
		FROM tenants WHERE slug = $1`, slug))
}

func (p *Postgres) Update(ctx context.Context, tenant *models.Tenant) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE tenants SET name = $2, status = $3, plan = $4, updated_at = $5
		WHERE id = $1`,
		tenant.ID.String(), tenant.Name, string(tenant.Status), string(tenant.Plan), tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (p *Postgres) CountByStatus(ctx context.Context, status models.TenantStatus) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tenants WHERE status = $1`, string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tenants by status: %w", err)
	}
	return count, nil
}

func (p *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

func (p *Postgres) scan(row *sql.Row) (*models.Tenant, error) {
	var (
		tenant       models.Tenant
		rawID        string
		status, plan string
	)
	err := row.Scan(&rawID, &tenant.Name, &tenant.Slug, &tenant.SchemaName,
		&status, &plan, &tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}

	tenantID, err := id.ParseTenantID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse tenant id: %w", err)
	}
	tenant.ID = tenantID
	tenant.Status = models.TenantStatus(status)
	tenant.Plan = models.Plan(plan)
	return &tenant, nil
}
