// Package forwarder delivers normalized webhook events to the canonical
// processing endpoint.
package forwarder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"noro/internal/webhook/models"
	"noro/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the processor is considered down. The
// handler maps it to 503 so providers back off and redeliver later.
var ErrCircuitOpen = errors.New("processor circuit open")

// Response is the upstream processor's verdict on one event.
type Response struct {
	StatusCode int
	Body       []byte
}

// Forwarder delivers one event to the canonical processor.
type Forwarder interface {
	Forward(ctx context.Context, event *models.Event) (*Response, error)
}

const maxResponseBody = 1 << 20

// HTTP forwards events over HTTP, replaying the raw body and the provider's
// signature header unchanged. Consecutive processor failures trip a circuit
// breaker so a dead processor does not tie up webhook workers.
type HTTP struct {
	processorURL string
	client       *http.Client
	breaker      *circuit.Breaker
	logger       *slog.Logger
}

// Option configures the HTTP forwarder.
type Option func(*HTTP)

// WithBreaker replaces the default circuit breaker, mainly to shorten the
// probe interval in tests.
func WithBreaker(b *circuit.Breaker) Option {
	return func(h *HTTP) { h.breaker = b }
}

// NewHTTP creates an HTTP forwarder.
func NewHTTP(processorURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *HTTP {
	h := &HTTP{
		processorURL: processorURL,
		client:       &http.Client{Timeout: timeout},
		breaker:      circuit.New(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) Forward(ctx context.Context, event *models.Event) (*Response, error) {
	if !h.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.processorURL, bytes.NewReader(event.RawBody))
	if err != nil {
		return nil, fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Provider", event.Provider)
	if event.Signature != "" {
		req.Header.Set(event.SignatureHeader, event.Signature)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.recordFailure()
		return nil, fmt.Errorf("forward to processor: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // response already consumed

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		h.recordFailure()
		return nil, fmt.Errorf("read processor response: %w", err)
	}

	// A 4xx is the processor rejecting this delivery, not being down, so it
	// does not count against the circuit.
	if resp.StatusCode >= http.StatusInternalServerError {
		h.recordFailure()
	} else if _, change := h.breaker.RecordSuccess(); change.Closed {
		h.logger.Info("processor circuit closed")
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (h *HTTP) recordFailure() {
	if _, change := h.breaker.RecordFailure(); change.Opened {
		h.logger.Warn("processor circuit opened")
	}
}
