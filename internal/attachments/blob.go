// Package attachments stores uploaded incident files in a blob store and
// serves them back.
package attachments

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned when the requested blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore stores attachment contents keyed by an opaque reference.
type BlobStore interface {
	Put(ctx context.Context, ref, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, ref string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, ref string) error
}
