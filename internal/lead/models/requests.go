package models

import (
	"strings"
	"time"

	dErrors "noro/pkg/domain-errors"
)

// CreateLeadRequest adds a lead to the board. New leads always enter the
// "new" stage at the bottom of the column.
type CreateLeadRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Source string `json:"source"`
}

func (r *CreateLeadRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		r.Source = "manual"
	}
}

func (r *CreateLeadRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "email is invalid")
	}
	return nil
}

// AssignRequest assigns a lead to the authenticated caller.
type AssignRequest struct {
	LeadID string `json:"lead_id"`
}

func (r *AssignRequest) Normalize() {
	r.LeadID = strings.TrimSpace(r.LeadID)
}

func (r *AssignRequest) Validate() error {
	if r.LeadID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "lead_id is required")
	}
	return nil
}

// MoveStageRequest moves a lead to another pipeline stage.
type MoveStageRequest struct {
	LeadID string `json:"lead_id"`
	Stage  Stage  `json:"stage"`
}

func (r *MoveStageRequest) Normalize() {
	r.LeadID = strings.TrimSpace(r.LeadID)
	r.Stage = Stage(strings.ToLower(strings.TrimSpace(string(r.Stage))))
}

func (r *MoveStageRequest) Validate() error {
	if r.LeadID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "lead_id is required")
	}
	if !ValidStage(r.Stage) {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown stage")
	}
	return nil
}

// ReorderRequest rewrites the ordering of a stage's column. The list may be
// partial; leads not listed keep their positions.
type ReorderRequest struct {
	Stage   Stage    `json:"stage"`
	LeadIDs []string `json:"lead_ids"`
}

func (r *ReorderRequest) Normalize() {
	r.Stage = Stage(strings.ToLower(strings.TrimSpace(string(r.Stage))))
	for i := range r.LeadIDs {
		r.LeadIDs[i] = strings.TrimSpace(r.LeadIDs[i])
	}
}

func (r *ReorderRequest) Validate() error {
	if !ValidStage(r.Stage) {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown stage")
	}
	if len(r.LeadIDs) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "lead_ids is required")
	}
	seen := make(map[string]struct{}, len(r.LeadIDs))
	for _, leadID := range r.LeadIDs {
		if leadID == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "lead_ids contains an empty entry")
		}
		if _, dup := seen[leadID]; dup {
			return dErrors.New(dErrors.CodeInvalidInput, "lead_ids contains duplicates")
		}
		seen[leadID] = struct{}{}
	}
	return nil
}

// CreateTaskRequest creates a follow-up task attached to a lead.
type CreateTaskRequest struct {
	LeadID string     `json:"lead_id"`
	Title  string     `json:"title"`
	DueAt  *time.Time `json:"due_at,omitempty"`
}

func (r *CreateTaskRequest) Normalize() {
	r.LeadID = strings.TrimSpace(r.LeadID)
	r.Title = strings.TrimSpace(r.Title)
}

func (r *CreateTaskRequest) Validate() error {
	if r.LeadID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "lead_id is required")
	}
	if r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if len(r.Title) > 256 {
		return dErrors.New(dErrors.CodeInvalidInput, "title must be 256 characters or less")
	}
	return nil
}
