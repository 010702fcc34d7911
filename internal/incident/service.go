package incident

import (
	"context"
	"errors"
	"strings"
	"time"

	"safetrack.org/internal/auth"
	"safetrack.org/internal/guard"
	"safetrack.org/internal/ids"
)

// StaffRole is the tier from which callers see every incident, including
// soft-deleted ones and records authored by others.
const StaffRole = auth.RoleSupervisor

// Service implements incident operations. Object-level authorization for
// mutations is composed at the operation layer; the service enforces the
// visibility rules that depend on the caller's role.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the incident service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("incident: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Store exposes the underlying store for predicate lookups.
func (s *Service) Store() Store {
	return s.store
}

// CreateInput is the accepted shape for a new incident. There is no priority
// field: priority is always computed server-side.
type CreateInput struct {
	Title       string
	Description string
	Severity    Severity
	Category    Category
	OccurredAt  time.Time
}

// Create stores a new incident with server-computed priority and timestamps.
func (s *Service) Create(ctx context.Context, c guard.Caller, in CreateInput) (Incident, error) {
	now := s.now().UTC()
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	inc := Incident{
		ID:          ids.New(),
		ReportedBy:  c.UID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Severity:    in.Severity,
		Category:    in.Category,
		Priority:    PriorityFor(in.Severity, in.Category),
		Status:      StatusOpen,
		OccurredAt:  occurred.UTC(),
		History: []StageEntry{{
			Stage: StatusOpen,
			Actor: c.UID,
			At:    now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, &inc); err != nil {
		return Incident{}, guard.Internal(err)
	}
	return inc, nil
}

// Get fetches one incident. Supervisor-and-above see every record including
// soft-deleted ones; plain users see only their own non-deleted incidents.
func (s *Service) Get(ctx context.Context, c guard.Caller, id string) (Incident, error) {
	inc, err := s.find(ctx, id)
	if err != nil {
		return Incident{}, err
	}
	if c.Role.AtLeast(StaffRole) {
		return inc, nil
	}
	if inc.ReportedBy != c.UID {
		return Incident{}, guard.PermissionDenied("")
	}
	if inc.Deleted {
		return Incident{}, guard.NotFound("incident")
	}
	return inc, nil
}

// ListInput scopes a listing request.
type ListInput struct {
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// List returns incidents visible to the caller: supervisor-and-above see all
// (optionally including soft-deleted), plain users only their own live ones.
func (s *Service) List(ctx context.Context, c guard.Caller, in ListInput) ([]Incident, error) {
	q := Query{Limit: in.Limit, Offset: in.Offset}
	if c.Role.AtLeast(StaffRole) {
		q.IncludeDeleted = in.IncludeDeleted
	} else {
		q.ReportedBy = c.UID
	}
	items, err := s.store.List(ctx, q)
	if err != nil {
		return nil, guard.Internal(err)
	}
	return items, nil
}

// SoftDelete marks the incident deleted without removing it from the store.
func (s *Service) SoftDelete(ctx context.Context, c guard.Caller, id string) error {
	err := s.store.SoftDelete(ctx, id, c.UID, s.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return guard.NotFound("incident")
	}
	if err != nil {
		return guard.Internal(err)
	}
	return nil
}

// StageInput advances the workflow.
type StageInput struct {
	ID    string
	Stage Status
	Note  string
}

// AdvanceStage appends a transition to the ordered history and updates the
// incident status.
func (s *Service) AdvanceStage(ctx context.Context, c guard.Caller, in StageInput) (Incident, error) {
	inc, err := s.store.AppendStage(ctx, in.ID, StageEntry{
		Stage: in.Stage,
		Actor: c.UID,
		Note:  strings.TrimSpace(in.Note),
		At:    s.now().UTC(),
	})
	if errors.Is(err, ErrNotFound) {
		return Incident{}, guard.NotFound("incident")
	}
	if err != nil {
		return Incident{}, guard.Internal(err)
	}
	return inc, nil
}

// ReporterOf resolves the original reporter for ownership predicates.
func (s *Service) ReporterOf(ctx context.Context, id string) (string, error) {
	inc, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}
	return inc.ReportedBy, nil
}

func (s *Service) find(ctx context.Context, id string) (Incident, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Incident{}, guard.NotFound("incident")
	}
	inc, err := s.store.Find(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Incident{}, guard.NotFound("incident")
	}
	if err != nil {
		return Incident{}, guard.Internal(err)
	}
	return inc, nil
}
