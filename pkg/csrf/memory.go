package csrf

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Records do not survive a
// restart and are not shared between instances.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Get(_ context.Context, token string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[token]
	return rec, ok, nil
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Token]; ok {
		return false, nil
	}
	s.records[rec.Token] = rec
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, tokens ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tokens {
		delete(s.records, t)
	}
	return nil
}

func (s *MemoryStore) MarkUsed(_ context.Context, token string, issuedAfter time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[token]
	if !ok || rec.Used || rec.IssuedAt.Before(issuedAfter) {
		return false, nil
	}

	rec.Used = true
	s.records[token] = rec
	return true, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records), nil
}
