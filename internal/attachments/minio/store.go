// Package minio implements attachment blob storage on S3-compatible object
// storage.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/opsdesk/incident-desk/internal/attachments"
)

// Config holds object storage configuration.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store keeps blobs as objects in a single bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, config Config) (*Store, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Store{client: client, bucket: config.Bucket}, nil
}

// Put uploads a blob.
func (s *Store) Put(ctx context.Context, ref, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, ref, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", ref, err)
	}
	return nil
}

// Get downloads a blob and returns its content type.
func (s *Store) Get(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get object %s: %w", ref, err)
	}

	// GetObject is lazy, Stat surfaces missing keys
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		var respErr minio.ErrorResponse
		if errors.As(err, &respErr) && respErr.Code == "NoSuchKey" {
			return nil, "", attachments.ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("stat object %s: %w", ref, err)
	}
	return obj, stat.ContentType, nil
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", ref, err)
	}
	return nil
}
