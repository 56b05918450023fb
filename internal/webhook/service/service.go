// Package service runs every provider delivery through one pipeline:
// normalize, verify, deduplicate, forward. The providers differ only in the
// adapters at the edge.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"noro/internal/webhook/dedup"
	"noro/internal/webhook/forwarder"
	"noro/internal/webhook/metrics"
	"noro/internal/webhook/models"
	"noro/internal/webhook/provider"
	dErrors "noro/pkg/domain-errors"
	"noro/pkg/platform/audit"
	"noro/pkg/requestcontext"
)

// AuditPublisher records forwarded deliveries on the platform audit stream.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the webhook pipeline.
type Service struct {
	adapters  provider.Registry
	ledger    dedup.Ledger
	forwarder forwarder.Forwarder
	logger    *slog.Logger
	metrics   *metrics.Metrics
	audit     AuditPublisher
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

// New creates a webhook service.
func New(adapters provider.Registry, ledger dedup.Ledger, fwd forwarder.Forwarder, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		adapters:  adapters,
		ledger:    ledger,
		forwarder: fwd,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one delivery through the pipeline. A non-nil error means the
// delivery was rejected before any upstream call; the handler maps it to a
// local error response. A Result with OutcomeUpstreamErr carries the
// processor's response for verbatim relay.
func (s *Service) Process(ctx context.Context, providerName string, header http.Header, body []byte) (*models.Result, error) {
	adapter, ok := s.adapters[providerName]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown provider")
	}

	event, err := adapter.Normalize(header, body, requestcontext.Now(ctx))
	if err != nil {
		s.observe(providerName, models.OutcomeRejected)
		return nil, err
	}

	if err := adapter.Verify(event); err != nil {
		s.logger.Warn("webhook verification failed",
			"provider", providerName,
			"event_id", event.EventID,
			"error", err,
		)
		s.observe(providerName, models.OutcomeRejected)
		return nil, err
	}

	fresh, err := s.ledger.MarkIfNew(ctx, event.Provider, event.EventID)
	if err != nil {
		// A broken ledger must not drop payments. Forward anyway; the
		// processor sees the event at least once.
		s.logger.Warn("dedup ledger unavailable, forwarding without dedup",
			"provider", providerName,
			"event_id", event.EventID,
			"error", err,
		)
		fresh = true
	} else if !fresh {
		s.logger.Info("duplicate webhook delivery dropped",
			"provider", providerName,
			"event_id", event.EventID,
		)
		s.observe(providerName, models.OutcomeDuplicate)
		return &models.Result{Outcome: models.OutcomeDuplicate}, nil
	}

	start := time.Now()
	resp, err := s.forwarder.Forward(ctx, event)
	if s.metrics != nil {
		s.metrics.ForwardDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.forget(ctx, event)
		s.observe(providerName, models.OutcomeUpstreamErr)
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamFailure, "failed to reach processor")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The provider's retry logic keys off the processor's own response,
		// so relay it verbatim and let the redelivery through next time.
		s.forget(ctx, event)
		s.observe(providerName, models.OutcomeUpstreamErr)
		return &models.Result{
			Outcome:    models.OutcomeUpstreamErr,
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
		}, nil
	}

	s.observe(providerName, models.OutcomeAcknowledged)
	s.emitAudit(ctx, event)
	return &models.Result{Outcome: models.OutcomeAcknowledged}, nil
}

func (s *Service) forget(ctx context.Context, event *models.Event) {
	if err := s.ledger.Forget(ctx, event.Provider, event.EventID); err != nil {
		s.logger.Warn("failed to roll back dedup mark",
			"provider", event.Provider,
			"event_id", event.EventID,
			"error", err,
		)
	}
}

func (s *Service) observe(provider string, outcome models.Outcome) {
	if s.metrics != nil {
		s.metrics.Deliveries.WithLabelValues(provider, string(outcome)).Inc()
	}
}

func (s *Service) emitAudit(ctx context.Context, event *models.Event) {
	if s.audit == nil {
		return
	}
	auditEvent := audit.Event{
		Timestamp: event.ReceivedAt,
		Subject:   "webhook",
		Action:    audit.ActionWebhookForwarded,
		Details: map[string]string{
			"provider":     event.Provider,
			"event_id":     event.EventID,
			"event_type":   event.EventType,
			"reference_id": event.ReferenceID,
		},
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := s.audit.Emit(ctx, auditEvent); err != nil {
		s.logger.Warn("audit emit failed", "action", audit.ActionWebhookForwarded, "error", err)
	}
}
