package audit

import (
	"context"
	"time"

	"safetrack.org/internal/ids"
	"safetrack.org/internal/obs"
)

// Recorder appends audit entries best-effort: a failed append is reported to
// the operational log and a metric, never to the caller. The business effect
// already happened and must not be undone by a logging glitch.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder builds a recorder over the given store. A nil store yields a
// recorder that drops entries, which keeps wiring simple in tests.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source. Test use only.
func (r *Recorder) WithClock(fn func() time.Time) *Recorder {
	if fn != nil {
		r.now = fn
	}
	return r
}

// Record appends one entry. Append errors never propagate; they surface only
// through the error log and the audit_append_failures_total counter.
func (r *Recorder) Record(ctx context.Context, userID, action string, details map[string]any) {
	if r == nil || r.store == nil {
		return
	}
	if details == nil {
		details = map[string]any{}
	}
	entry := &Entry{
		ID:        ids.New(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: r.now().UTC(),
	}
	if err := r.store.Append(ctx, entry); err != nil {
		obs.CountAuditFailure()
		obs.LogError("audit append failed", map[string]any{
			"action":  action,
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}
