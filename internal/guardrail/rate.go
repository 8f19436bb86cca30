package guardrail

import (
	"sync"
	"time"
)

// RateStore tracks per-user request timestamps over a trailing window.
//
// Implementations must be safe for concurrent use: requests for the same
// user id arrive from concurrent goroutines and must not undercount.
// The in-memory implementation below is the default; an external cache can
// be substituted for multi-process deployments.
type RateStore interface {
	// IncrementAndCount records one request for userID and returns the
	// number of requests observed within the trailing window, including
	// the one just recorded.
	IncrementAndCount(userID string, window time.Duration) int
}

// MemoryRateStore is a mutex-guarded in-memory RateStore.
//
// Stale users are evicted lazily: once per window a sweep drops every entry
// whose newest timestamp has aged out, so unbounded user churn does not
// grow the map without bound.
type MemoryRateStore struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	lastSweep time.Time

	// now is replaceable in tests.
	now func() time.Time
}

// NewMemoryRateStore creates an empty in-memory rate store.
func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// IncrementAndCount implements RateStore.
func (s *MemoryRateStore) IncrementAndCount(userID string, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	// Prune this user's aged-out entries, then record the new request.
	kept := s.requests[userID][:0]
	for _, ts := range s.requests[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	s.requests[userID] = kept

	s.maybeSweep(now, cutoff)

	return len(kept)
}

// maybeSweep evicts users whose newest request has aged out of the window.
// Runs at most once per window. Caller must hold s.mu.
func (s *MemoryRateStore) maybeSweep(now, cutoff time.Time) {
	window := now.Sub(cutoff)
	if now.Sub(s.lastSweep) < window {
		return
	}
	s.lastSweep = now

	for id, stamps := range s.requests {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(s.requests, id)
		}
	}
}

// ActiveUsers returns the number of users currently tracked.
func (s *MemoryRateStore) ActiveUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
