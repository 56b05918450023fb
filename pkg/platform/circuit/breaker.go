// Package circuit implements a two-state breaker around an unreliable
// dependency. Closed lets calls through; open short-circuits them. There is
// no separate half-open state: while open, Allow grants one probe per retry
// interval, and the breaker closes after enough consecutive probes succeed.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

// StateChange reports a transition made by the last Record call. At most one
// field is set; callers use it to log open/close events exactly once.
type StateChange struct {
	Opened bool
	Closed bool
}

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 3
	defaultRetryInterval    = 30 * time.Second
)

// Breaker counts consecutive outcomes. failureThreshold consecutive failures
// open it; successThreshold consecutive successes while open close it again.
// A success in the closed state resets the failure streak.
type Breaker struct {
	mu sync.Mutex

	state            State
	failures         int
	successes        int
	failureThreshold int
	successThreshold int

	retryInterval time.Duration
	openedAt      time.Time
	now           func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold overrides how many consecutive failures open the
// breaker. Non-positive values keep the default of 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold overrides how many consecutive successes close an open
// breaker. Non-positive values keep the default of 3.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithRetryInterval overrides how long an open breaker waits before letting
// the next probe through. Zero means every call may probe; negative values
// keep the default of 30s.
func WithRetryInterval(d time.Duration) Option {
	return func(b *Breaker) {
		if d >= 0 {
			b.retryInterval = d
		}
	}
}

// New returns a closed breaker.
func New(opts ...Option) *Breaker {
	b := &Breaker{
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
		retryInterval:    defaultRetryInterval,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may proceed. A closed breaker always allows.
// An open breaker allows one probe each retry interval and re-arms the
// interval when it does, so a dead dependency sees at most one call per
// interval while everything else short-circuits.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return true
	}
	if b.now().Sub(b.openedAt) < b.retryInterval {
		return false
	}
	b.openedAt = b.now()
	return true
}

// IsOpen reports whether the breaker has tripped.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// RecordFailure notes a failed call. The bool is true when the breaker is
// open after this failure.
func (b *Breaker) RecordFailure() (open bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0

	if b.state == StateOpen {
		// A failed probe re-arms the wait before the next one.
		b.openedAt = b.now()
		return true, StateChange{}
	}
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess notes a successful call. The bool is true when the breaker is
// closed after this success.
func (b *Breaker) RecordSuccess() (closed bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.successes++
		if b.successes < b.successThreshold {
			return false, StateChange{}
		}
		b.state = StateClosed
		b.failures = 0
		b.successes = 0
		return true, StateChange{Closed: true}
	}

	b.failures = 0
	return true, StateChange{}
}

// Reset forces the breaker closed and clears both streaks.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
