package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/incident-desk/internal/kv"
)

// failingKV accepts loads but rejects every save.
type failingKV struct{}

func (failingKV) Load(context.Context, string) ([]byte, error) { return nil, kv.ErrKeyNotFound }
func (failingKV) Save(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (failingKV) Ping(context.Context) error                   { return nil }
func (failingKV) Close() error                                 { return nil }

func TestNotifier_FansOutToAllRecipients(t *testing.T) {
	q, err := OpenQueue(context.Background(), kv.NewMemory())
	require.NoError(t, err)

	renderer, err := NewRenderer()
	require.NoError(t, err)

	n := NewNotifier(q, renderer, Recipients{
		WebhookURLs: []string{"https://hooks.example.com/a", "https://hooks.example.com/b"},
		Emails:      []string{"ops@example.com"},
	}, 3)

	n.IncidentReported(context.Background(), testIncident())

	due := q.FetchDue(context.Background(), 10, time.Now().Add(time.Second))
	require.Len(t, due, 3)

	channels := map[ChannelType]int{}
	for _, item := range due {
		channels[item.Channel]++
		assert.Equal(t, MessageKindReported, item.Kind)
		assert.NotEmpty(t, item.Subject)
		assert.NotEmpty(t, item.Body)
		assert.Equal(t, "inc-1", item.IncidentID)
	}
	assert.Equal(t, 2, channels[ChannelTypeWebhook])
	assert.Equal(t, 1, channels[ChannelTypeEmail])
}

func TestNotifier_FailedEnqueueNotCounted(t *testing.T) {
	q, err := OpenQueue(context.Background(), failingKV{})
	require.NoError(t, err)

	renderer, err := NewRenderer()
	require.NoError(t, err)

	n := NewNotifier(q, renderer, Recipients{
		WebhookURLs: []string{"https://hooks.example.com/a", "https://hooks.example.com/b"},
	}, 3)

	before := testutil.ToFloat64(notificationsEnqueued.WithLabelValues(string(ChannelTypeWebhook)))
	n.IncidentReported(context.Background(), testIncident())
	after := testutil.ToFloat64(notificationsEnqueued.WithLabelValues(string(ChannelTypeWebhook)))

	assert.Equal(t, before, after)
}

func TestNotifier_NoRecipientsEnqueuesNothing(t *testing.T) {
	q, err := OpenQueue(context.Background(), kv.NewMemory())
	require.NoError(t, err)

	renderer, err := NewRenderer()
	require.NoError(t, err)

	n := NewNotifier(q, renderer, Recipients{}, 3)
	n.SLAWarning(context.Background(), testIncident(), 2*time.Hour)

	assert.Equal(t, QueueStats{}, q.Stats())
}
