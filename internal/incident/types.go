package incident

import (
	"context"
	"errors"
	"time"
)

// Severity levels as reported by the field.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Category of the incident.
type Category string

const (
	CategoryInjury         Category = "injury"
	CategoryNearMiss       Category = "near_miss"
	CategoryPropertyDamage Category = "property_damage"
	CategoryEnvironmental  Category = "environmental"
	CategorySecurity       Category = "security"
	CategoryOther          Category = "other"
)

// Priority is derived from severity and category; it is never caller-settable.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status is the workflow stage of an incident.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

// SentinelReporter replaces the author on incidents whose reporter account
// was permanently deleted. The incidents themselves are retained.
const SentinelReporter = "deleted-user"

// StageEntry is one transition in the ordered workflow history.
type StageEntry struct {
	Stage Status    `json:"stage"`
	Actor string    `json:"actor"`
	Note  string    `json:"note,omitempty"`
	At    time.Time `json:"at"`
}

// Incident is a reported safety event. Once Deleted is set the record is
// excluded from normal listing but retained for audit purposes.
type Incident struct {
	ID          string       `json:"id"`
	ReportedBy  string       `json:"reported_by"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Severity    Severity     `json:"severity"`
	Category    Category     `json:"category"`
	Priority    Priority     `json:"priority"`
	Status      Status       `json:"status"`
	OccurredAt  time.Time    `json:"occurred_at"`
	History     []StageEntry `json:"history"`
	Deleted     bool         `json:"deleted"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
	DeletedBy   string       `json:"deleted_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Query filters a listing. A zero Query lists every non-deleted incident.
type Query struct {
	ReportedBy     string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Store describes persistence operations required by the incident subsystem.
type Store interface {
	Create(ctx context.Context, inc *Incident) error
	Find(ctx context.Context, id string) (Incident, error)
	List(ctx context.Context, q Query) ([]Incident, error)
	AppendStage(ctx context.Context, id string, stage StageEntry) (Incident, error)
	SoftDelete(ctx context.Context, id, by string, at time.Time) error
	ReassignReporter(ctx context.Context, from, to string) (int, error)
	CountByReporter(ctx context.Context, reporter string) (int, error)
}

var (
	ErrNotFound = errors.New("incident: not found")
)
