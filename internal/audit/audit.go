// Package audit provides the append-only record of privileged actions.
// Entries are never updated or deleted by the application; querying the log
// belongs to reporting tooling, not to this core.
package audit

import (
	"context"
	"errors"
	"time"
)

// Entry is an immutable audit record. One entry is appended per privileged
// operation, after the operation's effect has succeeded.
type Entry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}

// Store appends immutable entries. There is deliberately no update, delete,
// or query surface here.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

// ErrEmptyAction rejects entries with no action tag.
var ErrEmptyAction = errors.New("audit: action is required")
