// Package sinks provides audit event destinations.
package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"noro/internal/platform/kafka/producer"
	audit "noro/pkg/platform/audit"
)

// Topic is the audit event stream consumed by the billing/reporting side.
const Topic = "noro.audit.events"

// KafkaSink delivers audit events to the shared event stream. The event's
// tenant ID keys the record so per-tenant ordering is preserved.
type KafkaSink struct {
	producer *producer.Producer
}

func NewKafkaSink(p *producer.Producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: Topic,
		Key:   []byte(event.TenantID.String()),
		Value: value,
		Headers: map[string]string{
			"action": event.Action,
		},
	})
}

// MemorySink collects events in memory for tests and for running without
// brokers configured.
type MemorySink struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the collected events.
func (s *MemorySink) Events() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}
