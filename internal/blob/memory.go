package blob

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// InMemory keeps artifacts in process memory. Test and default backend.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[string]memEntry
}

type memEntry struct {
	ref  Ref
	data []byte
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty artifact store.
func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string]memEntry)}
}

func (s *InMemory) Put(ctx context.Context, key, contentType string, r io.Reader) (Ref, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Ref{}, err
	}
	ref := Ref{Key: key, Size: int64(len(data)), ContentType: contentType, StoredAt: time.Now().UTC()}
	s.mu.Lock()
	s.blobs[key] = memEntry{ref: ref, data: data}
	s.mu.Unlock()
	return ref, nil
}

func (s *InMemory) Open(ctx context.Context, key string) (io.ReadCloser, Ref, error) {
	s.mu.RLock()
	entry, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Ref{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(entry.data)), entry.ref, nil
}
