package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"safetrack.org/internal/ids"
	"safetrack.org/internal/incident"
)

// IncidentStore implements incident.Store over Postgres. The ordered stage
// history travels as a jsonb array.
type IncidentStore struct {
	db *sql.DB
}

var _ incident.Store = (*IncidentStore)(nil)

const incidentColumns = `id, reported_by, title, description, severity, category, priority,
	status, occurred_at, history, deleted, deleted_at, deleted_by, created_at, updated_at`

func (s *IncidentStore) Create(ctx context.Context, inc *incident.Incident) error {
	if inc.ID == "" {
		inc.ID = ids.New()
	}
	now := time.Now().UTC()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	inc.UpdatedAt = inc.CreatedAt

	history, err := json.Marshal(orEmptyHistory(inc.History))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into incidents (id, reported_by, title, description, severity, category, priority,
			status, occurred_at, history, deleted, deleted_at, deleted_by, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`, inc.ID, inc.ReportedBy, inc.Title, inc.Description, string(inc.Severity), string(inc.Category),
		string(inc.Priority), string(inc.Status), inc.OccurredAt, history,
		inc.Deleted, inc.DeletedAt, inc.DeletedBy, inc.CreatedAt, inc.UpdatedAt)
	return err
}

func (s *IncidentStore) Find(ctx context.Context, id string) (incident.Incident, error) {
	row := s.db.QueryRowContext(ctx, `select `+incidentColumns+` from incidents where id=$1`, id)
	return scanIncident(row)
}

func (s *IncidentStore) List(ctx context.Context, q incident.Query) ([]incident.Incident, error) {
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+incidentColumns+`
		from incidents
		where ($1 = '' or reported_by = $1)
		  and ($2 or not deleted)
		order by created_at desc, id desc
		limit $3 offset $4
	`, q.ReportedBy, q.IncludeDeleted, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []incident.Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (s *IncidentStore) AppendStage(ctx context.Context, id string, stage incident.StageEntry) (incident.Incident, error) {
	if stage.At.IsZero() {
		stage.At = time.Now().UTC()
	}
	entry, err := json.Marshal(stage)
	if err != nil {
		return incident.Incident{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		update incidents
		set history = history || $2::jsonb,
		    status = $3,
		    updated_at = $4
		where id = $1
		returning `+incidentColumns, id, entry, string(stage.Stage), stage.At)
	return scanIncident(row)
}

func (s *IncidentStore) SoftDelete(ctx context.Context, id, by string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update incidents
		set deleted = true, deleted_at = $2, deleted_by = $3, updated_at = $2
		where id = $1 and not deleted
	`, id, at.UTC(), by)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// Distinguish "already deleted" (idempotent success) from "missing".
	var exists bool
	if err := s.db.QueryRowContext(ctx, `select true from incidents where id=$1`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return incident.ErrNotFound
		}
		return err
	}
	return nil
}

// ReassignReporter moves every incident authored by one user to another in a
// single transaction so the count never changes partway.
func (s *IncidentStore) ReassignReporter(ctx context.Context, from, to string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update incidents set reported_by = $2, updated_at = now()
		where reported_by = $1
	`, from, to)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *IncidentStore) CountByReporter(ctx context.Context, reporter string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from incidents where reported_by=$1`, reporter).Scan(&n)
	return n, err
}

func scanIncident(row rowScanner) (incident.Incident, error) {
	var (
		inc       incident.Incident
		severity  string
		category  string
		priority  string
		status    string
		history   []byte
		deletedAt sql.NullTime
	)
	err := row.Scan(&inc.ID, &inc.ReportedBy, &inc.Title, &inc.Description, &severity, &category,
		&priority, &status, &inc.OccurredAt, &history, &inc.Deleted, &deletedAt, &inc.DeletedBy,
		&inc.CreatedAt, &inc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return incident.Incident{}, incident.ErrNotFound
	}
	if err != nil {
		return incident.Incident{}, err
	}
	inc.Severity = incident.Severity(severity)
	inc.Category = incident.Category(category)
	inc.Priority = incident.Priority(priority)
	inc.Status = incident.Status(status)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &inc.History); err != nil {
			return incident.Incident{}, err
		}
	}
	if deletedAt.Valid {
		at := deletedAt.Time.UTC()
		inc.DeletedAt = &at
	}
	return inc, nil
}

func orEmptyHistory(h []incident.StageEntry) []incident.StageEntry {
	if h == nil {
		return []incident.StageEntry{}
	}
	return h
}
