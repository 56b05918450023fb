// Package handler exposes the admin tenant API.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"noro/internal/tenant/models"
	"noro/internal/tenant/service"
	id "noro/pkg/domain"
	"noro/pkg/platform/httputil"
	"noro/pkg/platform/middleware/request"
)

// Handler handles admin tenant management endpoints.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New creates a tenant handler.
func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts tenant admin routes. The caller is expected to have already
// applied admin authentication to r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tenants", h.HandleCreate)
	r.Get("/tenants/stats", h.HandleStats)
	r.Get("/tenants/{tenantID}", h.HandleGet)
	r.Post("/tenants/{tenantID}/deactivate", h.HandleDeactivate)
	r.Post("/tenants/{tenantID}/reactivate", h.HandleReactivate)
	r.Put("/tenants/{tenantID}/plan", h.HandleUpdatePlan)
}

// HandleCreate provisions a new tenant.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeAndPrepare[models.CreateTenantRequest](r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	tenant, err := h.service.CreateTenant(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

// HandleGet returns one tenant by ID.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	tenant, err := h.service.GetTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// HandleDeactivate marks a tenant inactive.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Deactivate)
}

// HandleReactivate returns an inactive tenant to service.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reactivate)
}

// HandleUpdatePlan changes a tenant's subscription plan.
func (h *Handler) HandleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	req, err := httputil.DecodeAndPrepare[models.UpdatePlanRequest](r)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	tenant, err := h.service.UpdatePlan(r.Context(), tenantID, req)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// HandleStats returns fleet-wide tenant counts. The dashboard polls this
// endpoint, so a store failure degrades to zeroed counts instead of an error.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("tenant stats unavailable, serving zeroes",
			"error", err,
			"request_id", request.GetRequestID(r.Context()),
		)
		httputil.WriteJSON(w, http.StatusOK, models.Stats{})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	tenant, err := op(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, h.logger, err, request.GetRequestID(r.Context()))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tenant)
}
