package snapshot

import (
	"context"
	"sync"
)

// MemoryStore is a non-durable Store used by tests and throwaway runs.
type MemoryStore struct {
	mu      sync.Mutex
	daily   *Daily
	history History
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(History)}
}

func (s *MemoryStore) LoadDaily(_ context.Context) Daily {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.daily == nil {
		return PlaceholderDaily()
	}
	return *s.daily
}

func (s *MemoryStore) SaveDaily(_ context.Context, d Daily) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := d
	s.daily = &copied
	return nil
}

func (s *MemoryStore) LoadHistory(_ context.Context) History {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(History, len(s.history))
	for date, day := range s.history {
		copied := make(map[Period]Reading, len(day))
		for p, r := range day {
			copied[p] = r
		}
		out[date] = copied
	}
	return out
}

func (s *MemoryStore) AppendHistory(_ context.Context, date string, p Period, r Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Put(date, p, r)
	return nil
}

func (s *MemoryStore) Close() {}

var _ Store = (*MemoryStore)(nil)
