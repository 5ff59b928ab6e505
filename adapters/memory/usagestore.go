// Package memory provides in-memory implementations of storage ports.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/documind/domain/usage"
	"github.com/artpar/documind/ports"
)

// UsageStore is an in-memory implementation of ports.UsageLog.
type UsageStore struct {
	mu     sync.RWMutex
	events []usage.Event
}

// NewUsageStore creates a new in-memory usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{
		events: make([]usage.Event, 0),
	}
}

// Count returns the number of events matching the filter.
func (s *UsageStore) Count(ctx context.Context, f usage.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.events {
		if f.Matches(e) {
			n++
		}
	}
	return n, nil
}

// Append stores one event.
func (s *UsageStore) Append(ctx context.Context, e usage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
	return nil
}

// Ping always succeeds.
func (s *UsageStore) Ping(ctx context.Context) error {
	return nil
}

// GetAll returns all events (for testing).
func (s *UsageStore) GetAll() []usage.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]usage.Event{}, s.events...)
}

// Clear removes all events (for testing).
func (s *UsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make([]usage.Event, 0)
}

// Ensure interface compliance.
var (
	_ ports.UsageLog = (*UsageStore)(nil)
	_ ports.Pinger   = (*UsageStore)(nil)
)
