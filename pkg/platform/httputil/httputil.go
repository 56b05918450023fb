// Package httputil centralizes JSON responses and domain error translation so
// handlers stay thin.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "noro/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore
	// encoding errors. The response body may be incomplete, but headers are
	// already sent.
	_ = json.NewEncoder(w).Encode(response)
}

// OKResponse is the success envelope for thin mutation endpoints.
type OKResponse struct {
	OK     bool   `json:"ok"`
	ID     string `json:"id,omitempty"`
	TaskID string `json:"task_id,omitempty"`
}

// WriteOK writes the `{ok:true}` success envelope.
func WriteOK(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// WriteError translates a domain error to an HTTP response and logs it with
// the request correlation ID. Clients see an HTTP status and a free-text
// message; stable machine codes stay internal to the server.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		status := DomainCodeToHTTPStatus(domainErr.Code)
		msg := domainErr.Message
		if msg == "" {
			msg = string(domainErr.Code)
		}
		if logger != nil && status >= http.StatusInternalServerError {
			logger.Error("request failed", "error", err, "request_id", requestID)
		}
		WriteJSON(w, status, map[string]string{"error": msg})
		return
	}

	// Fallback for unexpected errors. The original error text never reaches
	// the client.
	if logger != nil {
		logger.Error("request failed with unclassified error", "error", err, "request_id", requestID)
	}
	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUpstreamFailure:
		return http.StatusBadGateway
	case dErrors.CodePartialFailure, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
