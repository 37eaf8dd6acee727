package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps events in process memory. Intended for tests and local development.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// StoreBatch makes MemoryStorage usable behind an AsyncWriter.
func (s *MemoryStorage) StoreBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *MemoryStorage) Query(_ context.Context, criteria Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]Event, 0)
	for _, e := range s.events {
		if criteria.Matches(e) {
			matched = append(matched, e)
		}
	}

	slices.SortStableFunc(matched, func(a, b Event) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return paginate(matched, criteria.Offset, criteria.Limit), nil
}

// Len returns the number of stored events.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func paginate(events []Event, offset, limit int) []Event {
	if offset > 0 {
		if offset >= len(events) {
			return []Event{}
		}
		events = events[offset:]
	}
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}
