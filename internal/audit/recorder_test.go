package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"safetrack.org/internal/obs"
)

type failingStore struct {
	calls int
}

func (s *failingStore) Append(_ context.Context, _ *Entry) error {
	s.calls++
	return errors.New("store unavailable")
}

func TestRecorderAppendsEntry(t *testing.T) {
	store := NewInMemory()
	rec := NewRecorder(store).WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	rec.Record(context.Background(), "admin-1", "account.lock", map[string]any{"target": "user-9"})

	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.UserID != "admin-1" || e.Action != "account.lock" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.ID == "" {
		t.Fatal("expected generated entry id")
	}
	if !e.Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %v", e.Timestamp)
	}
	if e.Details["target"] != "user-9" {
		t.Fatalf("details lost: %+v", e.Details)
	}
}

func TestRecorderSwallowsStoreFailure(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	store := &failingStore{}
	rec := NewRecorder(store)

	// Must not panic or surface the error in any way.
	rec.Record(context.Background(), "admin-1", "account.lock", nil)

	if store.calls != 1 {
		t.Fatalf("expected one append attempt, got %d", store.calls)
	}
	line := buf.String()
	if line == "" {
		t.Fatal("expected an operational error line")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("error line is not JSON: %v", err)
	}
	if entry["msg"] != "audit append failed" {
		t.Fatalf("unexpected msg: %v", entry["msg"])
	}
	if entry["action"] != "account.lock" {
		t.Fatalf("unexpected action: %v", entry["action"])
	}
}

func TestRecorderNilStoreIsNoop(t *testing.T) {
	rec := NewRecorder(nil)
	rec.Record(context.Background(), "u", "a", nil)
}

func TestInMemoryRejectsEmptyAction(t *testing.T) {
	store := NewInMemory()
	if err := store.Append(context.Background(), &Entry{}); err == nil {
		t.Fatal("expected empty action to be rejected")
	}
}
