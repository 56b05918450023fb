package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"noro/internal/lead/models"
	"noro/internal/platform/database"
	"noro/internal/sentinel"
	id "noro/pkg/domain"
)

// Postgres stores leads in per-tenant schemas. Every operation opens a scoped
// handle for the tenant's schema and runs inside one transaction, so the
// multi-step writes (row plus activity, sequential position updates) land
// atomically.
type Postgres struct {
	pool *database.Pool
}

// NewPostgres creates a lead store backed by the given pool.
func NewPostgres(pool *database.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) tx(ctx context.Context, scope models.Scope, fn func(tx *sql.Tx) error) error {
	handle, err := p.pool.ForSchema(scope.Schema)
	if err != nil {
		return err
	}
	return handle.Tx(ctx, fn)
}

// CreateLead inserts the lead at the bottom of its stage and records the
// creation activity in the same transaction.
func (p *Postgres) CreateLead(ctx context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error {
	return p.tx(ctx, scope, func(tx *sql.Tx) error {
		var position int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM leads WHERE stage = $1`,
			string(lead.Stage),
		).Scan(&position)
		if err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		lead.Position = position

		_, err = tx.ExecContext(ctx, `
			INSERT INTO leads (id, name, email, source, stage, position, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			lead.ID.String(), lead.Name, lead.Email, lead.Source,
			string(lead.Stage), lead.Position, ownerArg(lead.OwnerID),
			lead.CreatedAt, lead.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		return insertActivity(ctx, tx, activity)
	})
}

func (p *Postgres) FindLead(ctx context.Context, scope models.Scope, leadID id.LeadID) (*models.Lead, error) {
	var lead *models.Lead
	err := p.tx(ctx, scope, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, name, email, source, stage, position, owner_id, created_at, updated_at
			FROM leads WHERE id = $1`, leadID.String())
		var err error
		lead, err = scanLead(row)
		return err
	})
	return lead, err
}

// ListLeads returns leads ordered by stage then position. An empty stage
// returns the whole board.
func (p *Postgres) ListLeads(ctx context.Context, scope models.Scope, stage models.Stage) ([]*models.Lead, error) {
	var out []*models.Lead
	err := p.tx(ctx, scope, func(tx *sql.Tx) error {
		query := `
			SELECT id, name, email, source, stage, position, owner_id, created_at, updated_at
			FROM leads`
		args := []any{}
		if stage != "" {
			query += ` WHERE stage = $1`
			args = append(args, string(stage))
		}
		query += ` ORDER BY stage, position, created_at`

		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("list leads: %w", err)
		}
		defer rows.Close() //nolint:errcheck // read-only cursor

		for rows.Next() {
			lead, err := scanLead(rows)
			if err != nil {
				return err
			}
			out = append(out, lead)
		}
		return rows.Err()
	})
	return out, err
}

// UpdateOwner persists a new owner and the assignment activity together.
func (p *Postgres) UpdateOwner(ctx context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error {
	return p.tx(ctx, scope, func(tx *sql.Tx) error {
		if err := updateLead(ctx, tx, `UPDATE leads SET owner_id = $2, updated_at = $3 WHERE id = $1`,
			lead.ID.String(), ownerArg(lead.OwnerID), lead.UpdatedAt); err != nil {
			return err
		}
		return insertActivity(ctx, tx, activity)
	})
}

// UpdateStage persists a stage change and the status activity together.
func (p *Postgres) UpdateStage(ctx context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error {
	return p.tx(ctx, scope, func(tx *sql.Tx) error {
		if err := updateLead(ctx, tx, `UPDATE leads SET stage = $2, updated_at = $3 WHERE id = $1`,
			lead.ID.String(), string(lead.Stage), lead.UpdatedAt); err != nil {
			return err
		}
		return insertActivity(ctx, tx, activity)
	})
}

// Reorder assigns position index+1 to each listed lead inside one
// transaction. The stage predicate keeps a stale client list from
// repositioning a lead that already moved to another column; a lead that is
// missing or outside the stage rolls the whole call back.
func (p *Postgres) Reorder(ctx context.Context, scope models.Scope, stage models.Stage, ordered []id.LeadID) error {
	return p.tx(ctx, scope, func(tx *sql.Tx) error {
		for i, leadID := range ordered {
			if err := updateLead(ctx, tx, `UPDATE leads SET position = $2 WHERE id = $1 AND stage = $3`,
				leadID.String(), i+1, string(stage)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Postgres) CreateTask(ctx context.Context, scope models.Scope, task *models.Task) error {
	return p.tx(ctx, scope, func(tx *sql.Tx) error {
		var assignee any
		if task.AssigneeID != nil {
			assignee = task.AssigneeID.String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, entity_type, entity_id, title, status, assignee_id, due_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			task.ID.String(), task.EntityType, task.EntityID.String(),
			task.Title, task.Status, assignee, task.DueAt, task.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
}

// ListActivities returns the activity history for one lead, oldest first.
func (p *Postgres) ListActivities(ctx context.Context, scope models.Scope, leadID id.LeadID) ([]*models.LeadActivity, error) {
	var out []*models.LeadActivity
	err := p.tx(ctx, scope, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, lead_id, action, details, created_at
			FROM lead_activities WHERE lead_id = $1 ORDER BY created_at`, leadID.String())
		if err != nil {
			return fmt.Errorf("list activities: %w", err)
		}
		defer rows.Close() //nolint:errcheck // read-only cursor

		for rows.Next() {
			var (
				activity   models.LeadActivity
				rawID      string
				rawLeadID  string
				rawDetails []byte
			)
			if err := rows.Scan(&rawID, &rawLeadID, &activity.Action, &rawDetails, &activity.CreatedAt); err != nil {
				return fmt.Errorf("scan activity: %w", err)
			}
			activityID, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("parse activity id: %w", err)
			}
			activity.ID = activityID
			parsedLeadID, err := id.ParseLeadID(rawLeadID)
			if err != nil {
				return fmt.Errorf("parse activity lead id: %w", err)
			}
			activity.LeadID = parsedLeadID
			if len(rawDetails) > 0 {
				if err := json.Unmarshal(rawDetails, &activity.Details); err != nil {
					return fmt.Errorf("decode activity details: %w", err)
				}
			}
			out = append(out, &activity)
		}
		return rows.Err()
	})
	return out, err
}

func updateLead(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func insertActivity(ctx context.Context, tx *sql.Tx, activity *models.LeadActivity) error {
	details, err := json.Marshal(activity.Details)
	if err != nil {
		return fmt.Errorf("encode activity details: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO lead_activities (id, lead_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		activity.ID.String(), activity.LeadID.String(), activity.Action, details, activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func ownerArg(ownerID *id.UserID) any {
	if ownerID == nil {
		return nil
	}
	return ownerID.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var (
		lead     models.Lead
		rawID    string
		stage    string
		rawOwner sql.NullString
	)
	err := row.Scan(&rawID, &lead.Name, &lead.Email, &lead.Source,
		&stage, &lead.Position, &rawOwner, &lead.CreatedAt, &lead.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}

	leadID, err := id.ParseLeadID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse lead id: %w", err)
	}
	lead.ID = leadID
	lead.Stage = models.Stage(stage)
	if rawOwner.Valid {
		ownerID, err := id.ParseUserID(rawOwner.String)
		if err != nil {
			return nil, fmt.Errorf("parse owner id: %w", err)
		}
		lead.OwnerID = &ownerID
	}
	return &lead, nil
}
