package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"noro/internal/sentinel"
)

// validSchemaName is the strict identifier pattern for tenant schema names.
// Schema names are assigned once at provisioning and never come from request
// input, but the handle still refuses anything outside this pattern so a bug
// upstream cannot turn into schema injection.
var validSchemaName = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidSchemaName reports whether name is acceptable as a tenant schema name.
func ValidSchemaName(name string) bool {
	return validSchemaName.MatchString(name)
}

// ScopedHandle is the only way application code reaches tenant data. Every
// statement runs inside a transaction whose search_path is pinned to exactly
// one schema, so the handle exposes no operation capable of addressing another
// tenant's data.
type ScopedHandle struct {
	db     *sql.DB
	schema string
}

// ForSchema returns a handle confined to the given schema. The schema name
// must come from a resolved tenant record, never from raw user input.
func (p *Pool) ForSchema(schema string) (*ScopedHandle, error) {
	if p == nil || p.db == nil {
		return nil, fmt.Errorf("database not configured: %w", sentinel.ErrUnavailable)
	}
	if !ValidSchemaName(schema) {
		return nil, fmt.Errorf("schema name %q: %w", schema, sentinel.ErrInvalidInput)
	}
	return &ScopedHandle{db: p.db, schema: schema}, nil
}

// Schema returns the schema this handle is confined to.
func (h *ScopedHandle) Schema() string {
	return h.schema
}

// Tx runs fn inside a transaction with search_path pinned to the handle's
// schema. SET LOCAL scopes the setting to the transaction, so pooled
// connections return to the pool clean.
func (h *ScopedHandle) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// Validated against validSchemaName at construction; quoting guards the
	// reserved-word case.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`SET LOCAL search_path TO %q`, h.schema)); err != nil {
		tx.Rollback() //nolint:errcheck // original error is more useful
		return fmt.Errorf("pin search_path: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck // original error is more useful
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Exec runs a single statement through Tx.
func (h *ScopedHandle) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	var rows int64
	err := h.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	return rows, err
}

// Provision creates the schema and the tenant-scoped tables. Called once when
// a tenant is provisioned; idempotent so a failed provisioning can be retried.
func (h *ScopedHandle) Provision(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, h.schema),
		`CREATE TABLE IF NOT EXISTS leads (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'manual',
			stage TEXT NOT NULL,
			position INT NOT NULL,
			owner_id UUID,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		// Not UNIQUE: a partial reorder legitimately leaves two leads on the
		// same position until the next full reorder of the column.
		`CREATE INDEX IF NOT EXISTS leads_stage_position_idx ON leads (stage, position)`,
		`CREATE TABLE IF NOT EXISTS lead_activities (
			id UUID PRIMARY KEY,
			lead_id UUID NOT NULL REFERENCES leads (id),
			action TEXT NOT NULL,
			details JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id UUID NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			assignee_id UUID,
			due_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	return h.Tx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range ddl {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("provision schema %s: %w", h.schema, err)
			}
		}
		return nil
	})
}
