package models

import (
	"time"

	"github.com/google/uuid"

	id "noro/pkg/domain"
)

// Stage is a kanban pipeline column. Leads move through the pipeline from
// new toward won or lost.
type Stage string

const (
	StageNew         Stage = "new"
	StageContacted   Stage = "contacted"
	StageNegotiating Stage = "negotiating"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

// ValidStage reports whether s is a known pipeline stage.
func ValidStage(s Stage) bool {
	switch s {
	case StageNew, StageContacted, StageNegotiating, StageWon, StageLost:
		return true
	}
	return false
}

// Stages lists all pipeline stages in board order.
func Stages() []Stage {
	return []Stage{StageNew, StageContacted, StageNegotiating, StageWon, StageLost}
}

// Scope identifies which tenant's data an operation addresses. Built from a
// resolved tenant record, never from request input.
type Scope struct {
	TenantID id.TenantID
	Schema   string
}

// Lead is one sales opportunity on the tenant's board. Position is 1-based
// and dense within a stage.
type Lead struct {
	ID        id.LeadID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Source    string      `json:"source"`
	Stage     Stage       `json:"stage"`
	Position  int         `json:"position"`
	OwnerID   *id.UserID  `json:"owner_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Activity actions recorded against a lead.
const (
	ActivityCreated       = "created"
	ActivityAssigned      = "assigned"
	ActivityStatusChanged = "status_changed"
)

// LeadActivity is one append-only history entry for a lead.
type LeadActivity struct {
	ID        uuid.UUID         `json:"id"`
	LeadID    id.LeadID         `json:"lead_id"`
	Action    string            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Task statuses.
const (
	TaskStatusOpen = "open"
	TaskStatusDone = "done"
)

// EntityTypeLead is the only entity tasks attach to today.
const EntityTypeLead = "lead"

// Task is a follow-up item attached to an entity.
type Task struct {
	ID         id.TaskID  `json:"id"`
	EntityType string     `json:"entity_type"`
	EntityID   id.LeadID  `json:"entity_id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	AssigneeID *id.UserID `json:"assignee_id,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
