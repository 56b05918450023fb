// Package handler exposes the CRM lead pipeline API. All routes require a
// resolved tenant and mutate only that tenant's schema.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"noro/internal/lead/models"
	"noro/internal/lead/service"
	dErrors "noro/pkg/domain-errors"
	"noro/pkg/platform/httputil"
	"noro/pkg/platform/middleware/request"
	tenantmw "noro/pkg/platform/middleware/tenant"
)

// Handler handles CRM lead endpoints.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New creates a lead handler.
func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts lead routes. The caller applies tenant resolution and
// authentication middleware to r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/leads", h.HandleCreate)
	r.Get("/leads", h.HandleList)
	r.Get("/leads/{leadID}/activities", h.HandleActivities)
	r.Post("/leads/assign", h.HandleAssign)
	r.Post("/leads/move-stage", h.HandleMoveStage)
	r.Post("/leads/reorder", h.HandleReorder)
	r.Post("/leads/tasks", h.HandleCreateTask)
}

func (h *Handler) scope(r *http.Request) (models.Scope, error) {
	tenant := tenantmw.FromContext(r.Context())
	if tenant == nil {
		return models.Scope{}, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return models.Scope{TenantID: tenant.ID, Schema: tenant.SchemaName}, nil
}

// HandleCreate adds a lead to the board.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}
	req, err := httputil.DecodeAndPrepare[models.CreateLeadRequest](r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	lead, err := h.service.Create(r.Context(), scope, req)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.OKResponse{OK: true, ID: lead.ID.String()})
}

// ListResponse wraps the board listing. Stages carries the column order so
// clients can render empty columns without hardcoding the pipeline.
type ListResponse struct {
	Stages []models.Stage `json:"stages"`
	Leads  []*models.Lead `json:"leads"`
}

// HandleList returns the board, optionally filtered to one stage.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	stage := models.Stage(r.URL.Query().Get("stage"))
	leads, err := h.service.List(r.Context(), scope, stage)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}
	if leads == nil {
		leads = []*models.Lead{}
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{Stages: models.Stages(), Leads: leads})
}

// ActivitiesResponse wraps a lead's audit trail.
type ActivitiesResponse struct {
	Activities []*models.LeadActivity `json:"activities"`
}

// HandleActivities returns the activity history for one lead.
func (h *Handler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	activities, err := h.service.Activities(r.Context(), scope, chi.URLParam(r, "leadID"))
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}
	if activities == nil {
		activities = []*models.LeadActivity{}
	}

	httputil.WriteJSON(w, http.StatusOK, ActivitiesResponse{Activities: activities})
}

// HandleAssign assigns a lead to the authenticated caller.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}
	req, err := httputil.DecodeAndPrepare[models.AssignRequest](r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	if _, err := h.service.Assign(r.Context(), scope, req); err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteOK(w)
}

// HandleMoveStage moves a lead to another pipeline stage.
func (h *Handler) HandleMoveStage(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}
	req, err := httputil.DecodeAndPrepare[models.MoveStageRequest](r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	if _, err := h.service.MoveStage(r.Context(), scope, req); err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteOK(w)
}

// HandleReorder rewrites the ordering of one stage's column.
func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}
	req, err := httputil.DecodeAndPrepare[models.ReorderRequest](r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	if err := h.service.Reorder(r.Context(), scope, req); err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteOK(w)
}

// HandleCreateTask creates a follow-up task for a lead.
func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	scope, err := h.scope(r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}
	req, err := httputil.DecodeAndPrepare[models.CreateTaskRequest](r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	task, err := h.service.CreateFollowUpTask(r.Context(), scope, req)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.OKResponse{OK: true, TaskID: task.ID.String()})
}
