package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "noro/pkg/domain-errors"
)

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that support normalization.
type Normalizable interface {
	Normalize()
}

// DecodeJSON decodes a JSON request body into the target type.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return req, nil
}

// PrepareRequest normalizes and validates a request.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the JSON body, then calls Normalize() and
// Validate() when the target type implements them. Errors carry domain codes
// ready for WriteError.
func DecodeAndPrepare[T any](r *http.Request) (T, error) {
	req, err := DecodeJSON[T](r)
	if err != nil {
		return req, err
	}
	if err := PrepareRequest(&req); err != nil {
		return req, err
	}
	return req, nil
}
