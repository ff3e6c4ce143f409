// Package store provides counter storage backends for the limitgate engine.
//
// Two implementations share the CounterStore interface: RedisStore enforces a
// single global budget per key across all process instances, while
// MemoryStore is process-local and serves as the fallback when Redis is
// unreachable.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backend cannot be reached. Callers
// treat it as a failover signal, never as a request failure.
var ErrUnavailable = errors.New("counter store unavailable")

// Usage is the state of one fixed counting window after an increment.
type Usage struct {
	// Count is the number of increments applied in the current window,
	// including the one that produced this Usage.
	Count int64

	// ExpiresAt is when the window's record is evicted and counting
	// starts over. It is fixed at window creation and shared by every
	// caller hitting the same key.
	ExpiresAt time.Time
}

// CounterStore is an atomic increment-and-read primitive over keyed fixed
// windows.
//
// Increment must be atomic end to end: concurrent callers incrementing the
// same key never lose updates, and exactly one caller establishes the
// window's expiry. The first increment for a key creates the record with
// Count=1 and ExpiresAt=now+window; later increments within the window only
// bump the count and leave the expiry untouched. Expired records are evicted
// by the backend itself (TTL in Redis, lazy eviction plus sweep in memory).
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (Usage, error)
}
