// Package service implements the lead pipeline: creation, assignment, stage
// transitions, column reordering, and follow-up tasks. Every mutation lands
// with its activity record in one store transaction, and reorders for the
// same tenant and stage are serialized so concurrent drags cannot interleave
// position writes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"noro/internal/lead/metrics"
	"noro/internal/lead/models"
	"noro/internal/sentinel"
	id "noro/pkg/domain"
	dErrors "noro/pkg/domain-errors"
	"noro/pkg/platform/audit"
	platformsync "noro/pkg/platform/sync"
	"noro/pkg/requestcontext"
)

// Store is the persistence interface for leads, activities, and tasks. All
// multi-write operations are transactional in the implementation.
type Store interface {
	CreateLead(ctx context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error
	FindLead(ctx context.Context, scope models.Scope, leadID id.LeadID) (*models.Lead, error)
	ListLeads(ctx context.Context, scope models.Scope, stage models.Stage) ([]*models.Lead, error)
	UpdateOwner(ctx context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error
	UpdateStage(ctx context.Context, scope models.Scope, lead *models.Lead, activity *models.LeadActivity) error
	Reorder(ctx context.Context, scope models.Scope, stage models.Stage, ordered []id.LeadID) error
	CreateTask(ctx context.Context, scope models.Scope, task *models.Task) error
	ListActivities(ctx context.Context, scope models.Scope, leadID id.LeadID) ([]*models.LeadActivity, error)
}

// AuditPublisher records pipeline mutations on the platform audit stream.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates lead pipeline operations.
type Service struct {
	store    Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    AuditPublisher
	reorders *platformsync.ShardedMutex
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

// New creates a lead service.
func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   logger,
		reorders: platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a lead to the bottom of the "new" column and records the
// creation activity.
func (s *Service) Create(ctx context.Context, scope models.Scope, req models.CreateLeadRequest) (*models.Lead, error) {
	now := requestcontext.Now(ctx)

	lead := &models.Lead{
		ID:        id.NewLeadID(),
		Name:      req.Name,
		Email:     req.Email,
		Source:    req.Source,
		Stage:     models.StageNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	activity := s.activity(lead.ID, models.ActivityCreated, map[string]string{
		"source": req.Source,
	}, now)

	if err := s.store.CreateLead(ctx, scope, lead, activity); err != nil {
		return nil, s.storeErr(err, "failed to create lead")
	}

	if s.metrics != nil {
		s.metrics.LeadsCreated.Inc()
	}
	s.emitAudit(ctx, scope, audit.ActionLeadCreated, map[string]string{
		"lead_id": lead.ID.String(),
		"source":  req.Source,
	})
	return lead, nil
}

// Assign sets the authenticated caller as the lead's owner. Repeat
// assignment overwrites silently; each call still records its activity.
func (s *Service) Assign(ctx context.Context, scope models.Scope, req models.AssignRequest) (*models.Lead, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	leadID, err := id.ParseLeadID(req.LeadID)
	if err != nil {
		return nil, err
	}

	lead, err := s.findLead(ctx, scope, leadID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	lead.OwnerID = &userID
	lead.UpdatedAt = now
	activity := s.activity(lead.ID, models.ActivityAssigned, map[string]string{
		"to": userID.String(),
	}, now)

	if err := s.store.UpdateOwner(ctx, scope, lead, activity); err != nil {
		return nil, s.storeErr(err, "failed to assign lead")
	}

	s.emitAudit(ctx, scope, audit.ActionLeadAssigned, map[string]string{
		"lead_id": lead.ID.String(),
		"to":      userID.String(),
	})
	return lead, nil
}

// MoveStage moves a lead to another column. The stage write and its activity
// land in one transaction. The lead keeps its position; the board issues a
// reorder for the affected columns right after a drag.
func (s *Service) MoveStage(ctx context.Context, scope models.Scope, req models.MoveStageRequest) (*models.Lead, error) {
	leadID, err := id.ParseLeadID(req.LeadID)
	if err != nil {
		return nil, err
	}

	lead, err := s.findLead(ctx, scope, leadID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	from := lead.Stage
	lead.Stage = req.Stage
	lead.UpdatedAt = now
	activity := s.activity(lead.ID, models.ActivityStatusChanged, map[string]string{
		"from": string(from),
		"to":   string(req.Stage),
	}, now)

	if err := s.store.UpdateStage(ctx, scope, lead, activity); err != nil {
		return nil, s.storeErr(err, "failed to move lead")
	}

	if s.metrics != nil {
		s.metrics.StageMoves.WithLabelValues(string(req.Stage)).Inc()
	}
	s.emitAudit(ctx, scope, audit.ActionLeadStageChanged, map[string]string{
		"lead_id": lead.ID.String(),
		"from":    string(from),
		"to":      string(req.Stage),
	})
	return lead, nil
}

// Reorder assigns position index+1 to each listed lead. The list may be
// partial; unlisted leads keep their positions. Calls for the same tenant
// and stage run one at a time.
func (s *Service) Reorder(ctx context.Context, scope models.Scope, req models.ReorderRequest) error {
	ordered := make([]id.LeadID, 0, len(req.LeadIDs))
	for _, raw := range req.LeadIDs {
		leadID, err := id.ParseLeadID(raw)
		if err != nil {
			return err
		}
		ordered = append(ordered, leadID)
	}

	key := scope.TenantID.String() + "|" + string(req.Stage)
	s.reorders.Lock(key)
	defer s.reorders.Unlock(key)

	if err := s.store.Reorder(ctx, scope, req.Stage, ordered); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "lead not found in stage")
		}
		return s.storeErr(err, "failed to reorder leads")
	}

	if s.metrics != nil {
		s.metrics.Reorders.Inc()
	}
	s.emitAudit(ctx, scope, audit.ActionLeadsReordered, map[string]string{
		"stage": string(req.Stage),
		"count": strconv.Itoa(len(ordered)),
	})
	return nil
}

// CreateFollowUpTask creates an open task attached to a lead, assigned to the
// authenticated caller.
func (s *Service) CreateFollowUpTask(ctx context.Context, scope models.Scope, req models.CreateTaskRequest) (*models.Task, error) {
	userID, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	leadID, err := id.ParseLeadID(req.LeadID)
	if err != nil {
		return nil, err
	}

	lead, err := s.store.FindLead(ctx, scope, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The referenced lead is request input, so its absence is the
			// caller's error, not a missing resource.
			return nil, dErrors.New(dErrors.CodeInvalidInput, "lead not found")
		}
		return nil, s.storeErr(err, "failed to look up lead")
	}

	task := &models.Task{
		ID:         id.NewTaskID(),
		EntityType: models.EntityTypeLead,
		EntityID:   lead.ID,
		Title:      req.Title,
		Status:     models.TaskStatusOpen,
		AssigneeID: &userID,
		DueAt:      req.DueAt,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.store.CreateTask(ctx, scope, task); err != nil {
		return nil, s.storeErr(err, "failed to create task")
	}

	if s.metrics != nil {
		s.metrics.TasksCreated.Inc()
	}
	s.emitAudit(ctx, scope, audit.ActionTaskCreated, map[string]string{
		"lead_id": lead.ID.String(),
		"task_id": task.ID.String(),
	})
	return task, nil
}

// List returns the board, or one column when stage is set.
func (s *Service) List(ctx context.Context, scope models.Scope, stage models.Stage) ([]*models.Lead, error) {
	if stage != "" && !models.ValidStage(stage) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown stage")
	}
	leads, err := s.store.ListLeads(ctx, scope, stage)
	if err != nil {
		return nil, s.storeErr(err, "failed to list leads")
	}
	return leads, nil
}

// Activities returns the audit trail for one lead, oldest first.
func (s *Service) Activities(ctx context.Context, scope models.Scope, rawLeadID string) ([]*models.LeadActivity, error) {
	leadID, err := id.ParseLeadID(rawLeadID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findLead(ctx, scope, leadID); err != nil {
		return nil, err
	}
	activities, err := s.store.ListActivities(ctx, scope, leadID)
	if err != nil {
		return nil, s.storeErr(err, "failed to list activities")
	}
	return activities, nil
}

func (s *Service) caller(ctx context.Context) (id.UserID, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

func (s *Service) findLead(ctx context.Context, scope models.Scope, leadID id.LeadID) (*models.Lead, error) {
	lead, err := s.store.FindLead(ctx, scope, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "lead not found")
		}
		return nil, s.storeErr(err, "failed to look up lead")
	}
	return lead, nil
}

func (s *Service) storeErr(err error, msg string) error {
	s.logger.Error(msg, "error", err)
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) activity(leadID id.LeadID, action string, details map[string]string, now time.Time) *models.LeadActivity {
	return &models.LeadActivity{
		ID:        uuid.New(),
		LeadID:    leadID,
		Action:    action,
		Details:   details,
		CreatedAt: now,
	}
}

func (s *Service) emitAudit(ctx context.Context, scope models.Scope, action string, details map[string]string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		TenantID:  scope.TenantID,
		UserID:    requestcontext.UserID(ctx),
		Subject:   "lead",
		Action:    action,
		Details:   details,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.Warn("audit emit failed", "action", action, "error", err)
	}
}
