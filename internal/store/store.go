// Package store holds the authoritative in-process incident list and
// persists it as a full snapshot after every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/kv"
	"github.com/opsdesk/incident-desk/internal/pkg/metrics"
)

// ErrIncidentNotFound is returned for operations on an unknown incident id.
var ErrIncidentNotFound = errors.New("incident not found")

// Store is the authoritative incident list. All reads and mutations go
// through its lock, so a mutation and the persisted snapshot it produces
// are a single unit; concurrent callers cannot lose each other's update.
type Store struct {
	mu        sync.RWMutex
	incidents []domain.Incident

	kv  kv.Store
	key string
}

// Open loads the incident snapshot from the kv store, seeding with the
// built-in sample set when the blob is absent or unparseable.
func Open(ctx context.Context, kvStore kv.Store) (*Store, error) {
	s := &Store{
		kv:  kvStore,
		key: kv.KeyIncidents,
	}

	data, err := kvStore.Load(ctx, s.key)
	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
		s.incidents = SeedIncidents(time.Now())
		slog.Info("no incident snapshot found, seeding sample data", "count", len(s.incidents))
		if err := s.persistLocked(ctx); err != nil {
			return nil, fmt.Errorf("persist seed data: %w", err)
		}
		return s, nil

	case err != nil:
		return nil, fmt.Errorf("load incident snapshot: %w", err)
	}

	var incidents []domain.Incident
	if err := json.Unmarshal(data, &incidents); err != nil {
		// Treated as absent: fall back to seed data, no partial recovery.
		slog.Error("incident snapshot unparseable, falling back to seed data", "error", err)
		s.incidents = SeedIncidents(time.Now())
		if err := s.persistLocked(ctx); err != nil {
			return nil, fmt.Errorf("persist seed data: %w", err)
		}
		return s, nil
	}

	s.incidents = incidents
	slog.Info("incident snapshot loaded", "count", len(incidents))
	return s, nil
}

// List returns a copy of all incidents.
func (s *Store) List() []domain.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAll(s.incidents)
}

// Get returns the incident with the given id.
func (s *Store) Get(id string) (domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.incidents {
		if s.incidents[i].ID == id {
			return clone(s.incidents[i]), nil
		}
	}
	return domain.Incident{}, ErrIncidentNotFound
}

// Append adds a new incident and persists the snapshot.
func (s *Store) Append(ctx context.Context, inc domain.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.incidents = append(s.incidents, clone(inc))
	return s.persistLocked(ctx)
}

// Update applies fn to the incident with the given id under the store
// lock and persists the snapshot. fn receives a pointer to the stored
// incident; returning an error aborts the update without persisting.
func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Incident) error) (domain.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.incidents {
		if s.incidents[i].ID != id {
			continue
		}

		updated := clone(s.incidents[i])
		if err := fn(&updated); err != nil {
			return domain.Incident{}, err
		}
		s.incidents[i] = updated

		if err := s.persistLocked(ctx); err != nil {
			return domain.Incident{}, err
		}
		return clone(updated), nil
	}

	return domain.Incident{}, ErrIncidentNotFound
}

// persistLocked serializes the full list and overwrites the snapshot.
// Caller must hold the write lock. An empty list is never persisted,
// matching the original system's guard against wiping stored state on
// a not-yet-loaded list.
func (s *Store) persistLocked(ctx context.Context) error {
	if len(s.incidents) == 0 {
		return nil
	}

	start := time.Now()
	data, err := json.Marshal(s.incidents)
	if err != nil {
		return fmt.Errorf("marshal incident snapshot: %w", err)
	}

	if err := s.kv.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("save incident snapshot: %w", err)
	}

	metrics.RecordSnapshotSave(s.key, len(data), time.Since(start))
	return nil
}

func clone(inc domain.Incident) domain.Incident {
	cp := inc
	cp.TeamHistory = append([]domain.TeamAssignment(nil), inc.TeamHistory...)
	for i := range cp.TeamHistory {
		cp.TeamHistory[i].Attachments = append([]domain.FileAttachment(nil), inc.TeamHistory[i].Attachments...)
	}
	if inc.ClosedAt != nil {
		t := *inc.ClosedAt
		cp.ClosedAt = &t
	}
	if inc.CurrentTeam != nil {
		t := *inc.CurrentTeam
		cp.CurrentTeam = &t
	}
	if inc.ResolvingTeam != nil {
		t := *inc.ResolvingTeam
		cp.ResolvingTeam = &t
	}
	return cp
}

func cloneAll(incidents []domain.Incident) []domain.Incident {
	out := make([]domain.Incident, len(incidents))
	for i := range incidents {
		out[i] = clone(incidents[i])
	}
	return out
}
