package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSPutOpenRoundTrip(t *testing.T) {
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	ctx := context.Background()
	payload := []byte("%PDF-1.4 fake document body")

	ref, err := store.Put(ctx, "exports/incidents/abc123.pdf", "application/pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref.Size != int64(len(payload)) || ref.ContentType != "application/pdf" {
		t.Fatalf("unexpected ref: %+v", ref)
	}

	rc, got, err := store.Open(ctx, "exports/incidents/abc123.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if got.Size != ref.Size || got.ContentType != ref.ContentType {
		t.Fatalf("metadata mismatch: %+v vs %+v", got, ref)
	}
	back, _ := io.ReadAll(rc)
	if !bytes.Equal(back, payload) {
		t.Fatal("payload corrupted across round trip")
	}
}

func TestFSOverwriteReplacesPayload(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	ctx := context.Background()

	store.Put(ctx, "k", "text/plain", strings.NewReader("first"))
	if _, err := store.Put(ctx, "k", "text/plain", strings.NewReader("second")); err != nil {
		t.Fatalf("overwrite Put: %v", err)
	}
	rc, _, err := store.Open(ctx, "k")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	back, _ := io.ReadAll(rc)
	if string(back) != "second" {
		t.Fatalf("expected latest payload, got %q", back)
	}
}

func TestFSMissingKey(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	if _, _, err := store.Open(context.Background(), "no/such/key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFSRejectsTraversal(t *testing.T) {
	store, _ := NewFS(t.TempDir())
	if _, err := store.Put(context.Background(), "../escape", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatal("expected traversal key to be rejected")
	}
}

func TestInMemoryRoundTrip(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	if _, err := store.Put(ctx, "k", "text/csv", strings.NewReader("a,b\n1,2\n")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, ref, err := store.Open(ctx, "k")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if ref.ContentType != "text/csv" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	back, _ := io.ReadAll(rc)
	if string(back) != "a,b\n1,2\n" {
		t.Fatalf("payload mismatch: %q", back)
	}
}
