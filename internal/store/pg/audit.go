package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"safetrack.org/internal/audit"
	"safetrack.org/internal/ids"
)

// AuditStore implements audit.Store over Postgres. The table is append-only:
// nothing in the codebase updates or deletes audit rows.
type AuditStore struct {
	db *sql.DB
}

var _ audit.Store = (*AuditStore)(nil)

func (s *AuditStore) Append(ctx context.Context, e *audit.Entry) error {
	if e.Action == "" {
		return audit.ErrEmptyAction
	}
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	details, err := json.Marshal(orEmptyAny(e.Details))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_log (id, user_id, action, details, created_at)
		values ($1,$2,$3,$4,$5)
	`, e.ID, e.UserID, e.Action, details, e.Timestamp)
	return err
}
