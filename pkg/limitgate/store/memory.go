package store

import (
	"context"
	"sync"
	"time"
)

// record is one key's fixed counting window.
type record struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore implements CounterStore with an in-process map. It has no
// cross-instance consistency and exists so the engine can keep admitting
// requests while Redis is down. Expired windows are evicted lazily on access
// and swept periodically to bound memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record

	// now is swappable in tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

var _ CounterStore = (*MemoryStore)(nil)

// Increment applies one increment to the key's current window, creating the
// window (count=1, fixed expiry) if none exists or the prior one has lapsed.
// The read-modify-write runs under the store mutex, so concurrent callers
// never lose updates.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (Usage, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || !now.Before(rec.expiresAt) {
		rec = &record{count: 0, expiresAt: now.Add(window)}
		s.records[key] = rec
	}
	rec.count++

	return Usage{Count: rec.count, ExpiresAt: rec.expiresAt}, nil
}

// Sweep removes all expired windows and returns how many were evicted.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of live records, expired ones included until the
// next sweep or access.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartSweep runs Sweep on the given interval in a background goroutine.
// Call the returned function to stop it.
func (s *MemoryStore) StartSweep(interval time.Duration) func() {
	if interval <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}
