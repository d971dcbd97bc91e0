package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters per process. Limits are therefore enforced per
// instance, not across a fleet.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]Counter
	blocks   map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]Counter),
		blocks:   make(map[string]time.Time),
	}
}

func (s *MemoryStore) Increment(_ context.Context, id string, window time.Duration, now time.Time) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[id]
	if !ok || !now.Before(c.ResetAt) {
		c = Counter{Identifier: id, Count: 1, WindowStart: now, ResetAt: now.Add(window)}
	} else {
		c.Count++
	}
	s.counters[id] = c
	return c, nil
}

func (s *MemoryStore) Block(_ context.Context, id string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocks[id] = until
	return nil
}

func (s *MemoryStore) BlockedUntil(_ context.Context, id string, now time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.blocks[id]
	if !ok {
		return time.Time{}, false, nil
	}
	if !now.Before(until) {
		delete(s.blocks, id)
		return time.Time{}, false, nil
	}
	return until, true, nil
}

func (s *MemoryStore) Cleanup(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.counters {
		if !now.Before(c.ResetAt) {
			delete(s.counters, id)
			removed++
		}
	}
	for id, until := range s.blocks {
		if !now.Before(until) {
			delete(s.blocks, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
