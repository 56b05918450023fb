// Package requestcontext carries per-request values (correlation ID, caller
// identity, clock) through context so handlers, services, and stores share one
// view of the request without transport types leaking downward.
package requestcontext

import (
	"context"
	"time"

	id "noro/pkg/domain"
)

type contextKey int

const (
	keyRequestID contextKey = iota
	keyClientIP
	keyUserID
	keyNow
)

// WithRequestID stores the correlation ID for the request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID returns the correlation ID, or "" when none was set.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(keyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithClientIP stores the remote client IP for the request.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, keyClientIP, ip)
}

// ClientIP returns the remote client IP, or "" when none was set.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(keyClientIP).(string); ok {
		return v
	}
	return ""
}

// WithUserID stores the authenticated caller.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

// UserID returns the authenticated caller, or the nil ID when the request is
// unauthenticated.
func UserID(ctx context.Context) id.UserID {
	if v, ok := ctx.Value(keyUserID).(id.UserID); ok {
		return v
	}
	return id.UserID{}
}

// WithNow pins the clock for the request. Tests use this to make timestamps
// deterministic; production code leaves it unset.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, keyNow, now)
}

// Now returns the pinned clock value, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(keyNow).(time.Time); ok {
		return v
	}
	return time.Now().UTC()
}
