// Package blob stores generated export artifacts (PDF and CSV documents)
// behind a small content-addressed interface.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Ref describes a stored artifact.
type Ref struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store persists opaque artifacts under caller-chosen keys.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (Ref, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Ref, error)
}

// ErrNotFound is returned when no artifact exists under the key.
var ErrNotFound = errors.New("blob: not found")
