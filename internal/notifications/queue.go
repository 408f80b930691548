package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/kv"
	"github.com/opsdesk/incident-desk/internal/pkg/ctxlog"
)

// ChannelType identifies a delivery channel.
type ChannelType string

// Supported channels.
const (
	ChannelTypeWebhook ChannelType = "webhook"
	ChannelTypeEmail   ChannelType = "email"
)

// MessageKind identifies what the notification is about.
type MessageKind string

// Message kinds.
const (
	MessageKindReported     MessageKind = "reported"
	MessageKindSLAWarning   MessageKind = "sla_warning"
	MessageKindSLAEscalated MessageKind = "sla_escalated"
)

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending QueueStatus = "pending"
	QueueStatusSent    QueueStatus = "sent"
	QueueStatusFailed  QueueStatus = "failed"
)

// QueueItem represents a notification in the queue. Subject and body are
// rendered at enqueue time so the item is self-contained.
type QueueItem struct {
	ID            string          `json:"id"`
	IncidentID    string          `json:"incident_id"`
	Kind          MessageKind     `json:"kind"`
	Channel       ChannelType     `json:"channel"`
	To            string          `json:"to"`
	Subject       string          `json:"subject"`
	Body          string          `json:"body"`
	Incident      domain.Incident `json:"incident"`
	Status        QueueStatus     `json:"status"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
}

// QueueStats summarizes queue contents by status.
type QueueStats struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// ErrItemNotFound is returned when a queue item does not exist.
var ErrItemNotFound = errors.New("queue item not found")

// Queue is a durable notification queue persisted as a snapshot in the KV
// store.
type Queue struct {
	mu    sync.Mutex
	items map[string]QueueItem
	kv    kv.Store
	key   string
}

// OpenQueue loads the queue snapshot from the KV store. A missing or
// unparseable snapshot starts an empty queue.
func OpenQueue(ctx context.Context, kvStore kv.Store) (*Queue, error) {
	q := &Queue{
		items: make(map[string]QueueItem),
		kv:    kvStore,
		key:   kv.KeyNotificationQueue,
	}

	data, err := kvStore.Load(ctx, q.key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load notification queue: %w", err)
	}

	if err := json.Unmarshal(data, &q.items); err != nil {
		ctxlog.FromContext(ctx).Warn("notification queue snapshot unreadable, starting empty", "error", err)
		q.items = make(map[string]QueueItem)
	}
	return q, nil
}

// Enqueue adds a pending item and persists the queue.
func (q *Queue) Enqueue(ctx context.Context, item QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items[item.ID] = item
	return q.persistLocked(ctx)
}

// FetchDue returns up to limit pending items whose next attempt time has
// passed, oldest first.
func (q *Queue) FetchDue(_ context.Context, limit int, now time.Time) []QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	due := make([]QueueItem, 0, limit)
	for _, item := range q.items {
		if item.Status == QueueStatusPending && !item.NextAttemptAt.After(now) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })

	if len(due) > limit {
		due = due[:limit]
	}
	return due
}

// MarkSent marks an item as delivered and persists the queue.
func (q *Queue) MarkSent(ctx context.Context, id string, at time.Time) error {
	return q.update(ctx, id, func(item *QueueItem) {
		item.Status = QueueStatusSent
		item.SentAt = &at
		item.UpdatedAt = at
	})
}

// MarkFailed marks an item as permanently failed and persists the queue.
func (q *Queue) MarkFailed(ctx context.Context, id string, cause error, at time.Time) error {
	return q.update(ctx, id, func(item *QueueItem) {
		item.Status = QueueStatusFailed
		item.LastError = cause.Error()
		item.UpdatedAt = at
	})
}

// MarkForRetry records a failed attempt and reschedules the item.
func (q *Queue) MarkForRetry(ctx context.Context, id string, cause error, nextAttempt time.Time) error {
	return q.update(ctx, id, func(item *QueueItem) {
		item.Attempts++
		item.LastError = cause.Error()
		item.NextAttemptAt = nextAttempt
		item.UpdatedAt = time.Now()
	})
}

// Stats returns queue counts by status.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats QueueStats
	for _, item := range q.items {
		switch item.Status {
		case QueueStatusPending:
			stats.Pending++
		case QueueStatusSent:
			stats.Sent++
		case QueueStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

func (q *Queue) update(ctx context.Context, id string, fn func(*QueueItem)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return ErrItemNotFound
	}
	fn(&item)
	q.items[id] = item
	return q.persistLocked(ctx)
}

func (q *Queue) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("marshal notification queue: %w", err)
	}
	if err := q.kv.Save(ctx, q.key, data); err != nil {
		return fmt.Errorf("save notification queue: %w", err)
	}
	return nil
}
