// Package file provides a filesystem implementation of the kv snapshot
// store. Each key becomes one JSON file inside the configured directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opsdesk/incident-desk/internal/kv"
)

// Store persists snapshot blobs as files under a base directory.
type Store struct {
	dir string
}

// New creates the base directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load reads the blob for key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, kv.ErrKeyNotFound
		}
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return data, nil
}

// Save writes the blob for key atomically via a rename.
func (s *Store) Save(_ context.Context, key string, data []byte) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", key, err)
	}
	return nil
}

// Ping verifies the base directory is still accessible.
func (s *Store) Ping(_ context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
