// Package handler exposes the payment-provider webhook endpoints. Responses
// follow the providers' acknowledgement contract: 200 with an empty body
// stops redelivery, an upstream error is relayed verbatim so the provider's
// own backoff applies, and local failures answer with a short plain-text
// string.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"noro/internal/webhook/forwarder"
	"noro/internal/webhook/models"
	"noro/internal/webhook/service"
	dErrors "noro/pkg/domain-errors"
	"noro/pkg/platform/middleware/request"
)

// Handler handles inbound webhook deliveries.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

// New creates a webhook handler.
func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts one endpoint per provider.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/{provider}", h.HandleDelivery)
}

// HandleDelivery runs one delivery through the pipeline and answers per the
// acknowledgement contract.
func (h *Handler) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	if !models.KnownProvider(providerName) {
		h.writeText(w, http.StatusNotFound, "unknown provider")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeText(w, http.StatusInternalServerError, "failed to read request body")
		return
	}

	result, err := h.service.Process(r.Context(), providerName, r.Header, body)
	if err != nil {
		h.writeProcessError(w, r, providerName, err)
		return
	}

	switch result.Outcome {
	case models.OutcomeUpstreamErr:
		// Relay the processor's verdict byte for byte.
		w.WriteHeader(result.StatusCode)
		w.Write(result.Body) //nolint:errcheck // nothing to do about a failed write
	default:
		// Acknowledged and duplicate both answer 200 empty so the provider
		// stops redelivering.
		w.WriteHeader(http.StatusOK)
	}
}

func (h *Handler) writeProcessError(w http.ResponseWriter, r *http.Request, providerName string, err error) {
	h.logger.Warn("webhook delivery failed",
		"provider", providerName,
		"error", err,
		"request_id", request.GetRequestID(r.Context()),
	)

	switch {
	case errors.Is(err, forwarder.ErrCircuitOpen):
		h.writeText(w, http.StatusServiceUnavailable, "processor unavailable")
	case dErrors.HasCode(err, dErrors.CodeUpstreamFailure):
		h.writeText(w, http.StatusBadGateway, "processor unreachable")
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		h.writeText(w, http.StatusNotFound, "unknown provider")
	case dErrors.HasCode(err, dErrors.CodeUnauthorized):
		h.writeText(w, http.StatusUnauthorized, "verification failed")
	case dErrors.HasCode(err, dErrors.CodeInvalidInput):
		h.writeText(w, http.StatusBadRequest, "malformed payload")
	default:
		h.writeText(w, http.StatusInternalServerError, "webhook processing failed")
	}
}

func (h *Handler) writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg)) //nolint:errcheck // nothing to do about a failed write
}
