package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FS stores artifacts on the local filesystem, one subdirectory per key with
// the payload and a metadata sidecar. Writes go through a temp file and an
// atomic rename so readers never observe partial payloads.
type FS struct {
	rootDir string
}

var _ Store = (*FS)(nil)

// NewFS creates the root directory if needed.
func NewFS(rootDir string) (*FS, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root directory: %w", err)
	}
	return &FS{rootDir: rootDir}, nil
}

func (s *FS) Put(ctx context.Context, key, contentType string, r io.Reader) (Ref, error) {
	dir, err := s.keyDir(key)
	if err != nil {
		return Ref{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Ref{}, fmt.Errorf("blob: create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Ref{}, fmt.Errorf("blob: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Ref{}, fmt.Errorf("blob: write payload: %w", err)
	}

	ref := Ref{Key: key, Size: size, ContentType: contentType, StoredAt: time.Now().UTC()}
	meta, err := json.Marshal(ref)
	if err != nil {
		return Ref{}, fmt.Errorf("blob: marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), meta, 0o644); err != nil {
		return Ref{}, fmt.Errorf("blob: write metadata: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, "payload")); err != nil {
		return Ref{}, fmt.Errorf("blob: publish payload: %w", err)
	}
	return ref, nil
}

func (s *FS) Open(ctx context.Context, key string) (io.ReadCloser, Ref, error) {
	dir, err := s.keyDir(key)
	if err != nil {
		return nil, Ref{}, err
	}
	meta, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if os.IsNotExist(err) {
		return nil, Ref{}, ErrNotFound
	}
	if err != nil {
		return nil, Ref{}, fmt.Errorf("blob: read metadata: %w", err)
	}
	var ref Ref
	if err := json.Unmarshal(meta, &ref); err != nil {
		return nil, Ref{}, fmt.Errorf("blob: unmarshal metadata: %w", err)
	}
	f, err := os.Open(filepath.Join(dir, "payload"))
	if os.IsNotExist(err) {
		return nil, Ref{}, ErrNotFound
	}
	if err != nil {
		return nil, Ref{}, fmt.Errorf("blob: open payload: %w", err)
	}
	return f, ref, nil
}

// keyDir maps a key to a directory under the root, rejecting traversal.
func (s *FS) keyDir(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob: invalid key %q", key)
	}
	return filepath.Join(s.rootDir, filepath.FromSlash(key)), nil
}
