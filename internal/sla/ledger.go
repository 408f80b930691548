package sla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opsdesk/incident-desk/internal/kv"
	"github.com/opsdesk/incident-desk/internal/pkg/ctxlog"
)

// LedgerEntry records which thresholds already fired for an incident.
type LedgerEntry struct {
	WarnedAt    *time.Time `json:"warned_at,omitempty"`
	EscalatedAt *time.Time `json:"escalated_at,omitempty"`
}

// Ledger is a durable record of fired SLA notifications. It survives restarts
// so a threshold fires at most once per incident.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]LedgerEntry
	kv      kv.Store
	key     string
}

// OpenLedger loads the ledger snapshot from the KV store. A missing or
// unparseable snapshot starts an empty ledger.
func OpenLedger(ctx context.Context, kvStore kv.Store) (*Ledger, error) {
	l := &Ledger{
		entries: make(map[string]LedgerEntry),
		kv:      kvStore,
		key:     kv.KeySLALedger,
	}

	data, err := kvStore.Load(ctx, l.key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sla ledger: %w", err)
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		ctxlog.FromContext(ctx).Warn("sla ledger snapshot unreadable, starting empty", "error", err)
		l.entries = make(map[string]LedgerEntry)
	}
	return l, nil
}

// Warned reports whether a warning already fired for the incident.
func (l *Ledger) Warned(incidentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[incidentID].WarnedAt != nil
}

// Escalated reports whether an escalation already fired for the incident.
func (l *Ledger) Escalated(incidentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[incidentID].EscalatedAt != nil
}

// MarkWarned records the warning and persists the ledger.
func (l *Ledger) MarkWarned(ctx context.Context, incidentID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[incidentID]
	if entry.WarnedAt != nil {
		return nil
	}
	entry.WarnedAt = &at
	l.entries[incidentID] = entry
	return l.persistLocked(ctx)
}

// MarkEscalated records the escalation and persists the ledger. An escalation
// implies the warning so a late warning never fires afterwards.
func (l *Ledger) MarkEscalated(ctx context.Context, incidentID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[incidentID]
	if entry.EscalatedAt != nil {
		return nil
	}
	entry.EscalatedAt = &at
	if entry.WarnedAt == nil {
		entry.WarnedAt = &at
	}
	l.entries[incidentID] = entry
	return l.persistLocked(ctx)
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(l.entries)
	if err != nil {
		return fmt.Errorf("marshal sla ledger: %w", err)
	}
	if err := l.kv.Save(ctx, l.key, data); err != nil {
		return fmt.Errorf("save sla ledger: %w", err)
	}
	return nil
}
