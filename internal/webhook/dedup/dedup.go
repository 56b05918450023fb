// Package dedup records which webhook deliveries have already been seen so
// provider redeliveries become no-ops.
package dedup

import (
	"context"
	"sync"
	"time"

	"noro/internal/platform/redis"
)

// Ledger marks deliveries as seen. MarkIfNew returns true exactly once per
// (provider, eventID) within the retention window. Forget rolls a mark back
// when forwarding fails, so the provider's redelivery is not swallowed.
type Ledger interface {
	MarkIfNew(ctx context.Context, provider, eventID string) (bool, error)
	Forget(ctx context.Context, provider, eventID string) error
}

const keyPrefix = "noro:webhook:seen:"

// Redis is the production ledger. SETNX gives the atomic first-writer-wins
// check; the TTL bounds the ledger to the providers' redelivery horizon.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed ledger.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) MarkIfNew(ctx context.Context, provider, eventID string) (bool, error) {
	return r.client.SetNX(ctx, keyPrefix+provider+":"+eventID, 1, r.ttl).Result()
}

func (r *Redis) Forget(ctx context.Context, provider, eventID string) error {
	return r.client.Del(ctx, keyPrefix+provider+":"+eventID).Err()
}

// Memory is the ledger used in tests and when Redis is not configured.
// Entries never expire; acceptable for a single process lifetime.
type Memory struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{seen: make(map[string]struct{})}
}

func (m *Memory) MarkIfNew(_ context.Context, provider, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := provider + ":" + eventID
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

func (m *Memory) Forget(_ context.Context, provider, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, provider+":"+eventID)
	return nil
}
