package incident

import (
	"context"
	"sort"
	"sync"
	"time"

	"safetrack.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used as the
// default backend when no Postgres DSN is configured and throughout tests.
type InMemory struct {
	mu   sync.RWMutex
	byID map[string]*Incident
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty incident store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]*Incident)}
}

func (s *InMemory) Create(ctx context.Context, inc *Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inc.ID == "" {
		inc.ID = ids.New()
	}
	now := time.Now().UTC()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	inc.UpdatedAt = inc.CreatedAt
	cp := cloneIncident(*inc)
	s.byID[inc.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.byID[id]
	if !ok {
		return Incident{}, ErrNotFound
	}
	return cloneIncident(*inc), nil
}

func (s *InMemory) List(ctx context.Context, q Query) ([]Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Incident, 0, len(s.byID))
	for _, inc := range s.byID {
		if inc.Deleted && !q.IncludeDeleted {
			continue
		}
		if q.ReportedBy != "" && inc.ReportedBy != q.ReportedBy {
			continue
		}
		out = append(out, cloneIncident(*inc))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []Incident{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *InMemory) AppendStage(ctx context.Context, id string, stage StageEntry) (Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.byID[id]
	if !ok {
		return Incident{}, ErrNotFound
	}
	if stage.At.IsZero() {
		stage.At = time.Now().UTC()
	}
	inc.History = append(inc.History, stage)
	inc.Status = stage.Stage
	inc.UpdatedAt = stage.At
	return cloneIncident(*inc), nil
}

func (s *InMemory) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if inc.Deleted {
		return nil
	}
	inc.Deleted = true
	inc.DeletedAt = &at
	inc.DeletedBy = by
	inc.UpdatedAt = at
	return nil
}

func (s *InMemory) ReassignReporter(ctx context.Context, from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	now := time.Now().UTC()
	for _, inc := range s.byID {
		if inc.ReportedBy == from {
			inc.ReportedBy = to
			inc.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (s *InMemory) CountByReporter(ctx context.Context, reporter string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, inc := range s.byID {
		if inc.ReportedBy == reporter {
			count++
		}
	}
	return count, nil
}

// cloneIncident copies the record and its history so callers never alias
// store-internal state.
func cloneIncident(inc Incident) Incident {
	out := inc
	if inc.History != nil {
		out.History = make([]StageEntry, len(inc.History))
		copy(out.History, inc.History)
	}
	if inc.DeletedAt != nil {
		at := *inc.DeletedAt
		out.DeletedAt = &at
	}
	return out
}
