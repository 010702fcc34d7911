package audit

import (
	"context"
	"sync"
	"time"

	"safetrack.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemory creates an empty in-memory audit log.
func NewInMemory() *InMemory {
	return &InMemory{}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Append(ctx context.Context, entry *Entry) error {
	if entry == nil || entry.Action == "" {
		return ErrEmptyAction
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

// Entries returns a copy of everything appended so far. Intended for tests
// and compliance inspection, not for the request path.
func (s *InMemory) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
