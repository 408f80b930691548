// Package fs implements attachment blob storage on the local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opsdesk/incident-desk/internal/attachments"
)

// Store keeps each blob as a file under dir, with a sidecar file holding the
// content type.
type Store struct {
	dir string
}

type blobMeta struct {
	ContentType string `json:"content_type"`
}

// New creates the directory if needed and returns the store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Put writes the blob and its metadata.
func (s *Store) Put(_ context.Context, ref, contentType string, r io.Reader, _ int64) error {
	path, err := s.blobPath(ref)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create blob %s: %w", ref, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write blob %s: %w", ref, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close blob %s: %w", ref, err)
	}

	meta, err := json.Marshal(blobMeta{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("marshal blob meta: %w", err)
	}
	if err := os.WriteFile(path+".meta", meta, 0o644); err != nil {
		return fmt.Errorf("write blob meta %s: %w", ref, err)
	}
	return nil
}

// Get opens the blob and returns its content type.
func (s *Store) Get(_ context.Context, ref string) (io.ReadCloser, string, error) {
	path, err := s.blobPath(ref)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, "", attachments.ErrBlobNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("open blob %s: %w", ref, err)
	}

	var meta blobMeta
	if data, err := os.ReadFile(path + ".meta"); err == nil {
		_ = json.Unmarshal(data, &meta)
	}
	return f, meta.ContentType, nil
}

// Delete removes the blob and its metadata.
func (s *Store) Delete(_ context.Context, ref string) error {
	path, err := s.blobPath(ref)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return attachments.ErrBlobNotFound
		}
		return fmt.Errorf("remove blob %s: %w", ref, err)
	}
	_ = os.Remove(path + ".meta")
	return nil
}

// blobPath rejects references that would escape the blob directory.
func (s *Store) blobPath(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "/") || strings.Contains(ref, "\\") || !iofs.ValidPath(ref) {
		return "", fmt.Errorf("invalid blob reference %q", ref)
	}
	return filepath.Join(s.dir, ref), nil
}
