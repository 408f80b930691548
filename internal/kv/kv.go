// Package kv defines the key-value persistence port used for state
// snapshots. Every consumer serializes its full state as one blob per
// key; there is no partial or cross-key transactional guarantee.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Load when no blob exists for the key.
var ErrKeyNotFound = errors.New("key not found")

// Store is the snapshot persistence port. Implementations must allow
// Save to overwrite an existing blob in full.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Snapshot keys used across the application.
const (
	KeyIncidents         = "incidents"
	KeyUsers             = "users"
	KeySLALedger         = "sla_ledger"
	KeyNotificationQueue = "notification_queue"
)
