package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/incident-desk/internal/domain"
)

// Recipients configures where notifications go. Webhook targets are incoming
// webhook URLs, email targets are addresses.
type Recipients struct {
	WebhookURLs []string
	Emails      []string
}

// Notifier renders lifecycle and SLA events and enqueues them for delivery.
// It satisfies the notifier interfaces of the incidents and sla packages.
type Notifier struct {
	queue       *Queue
	renderer    *Renderer
	recipients  Recipients
	maxAttempts int
}

// NewNotifier creates a new Notifier.
func NewNotifier(queue *Queue, renderer *Renderer, recipients Recipients, maxAttempts int) *Notifier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Notifier{
		queue:       queue,
		renderer:    renderer,
		recipients:  recipients,
		maxAttempts: maxAttempts,
	}
}

// IncidentReported enqueues notifications for a newly reported incident.
func (n *Notifier) IncidentReported(ctx context.Context, inc domain.Incident) {
	n.enqueueAll(ctx, Payload{Kind: MessageKindReported, Incident: inc})
}

// SLAWarning enqueues notifications for an incident nearing SLA breach.
func (n *Notifier) SLAWarning(ctx context.Context, inc domain.Incident, age time.Duration) {
	n.enqueueAll(ctx, Payload{Kind: MessageKindSLAWarning, Incident: inc, Age: age})
}

// SLAEscalated enqueues notifications for an incident past the SLA.
func (n *Notifier) SLAEscalated(ctx context.Context, inc domain.Incident, age time.Duration) {
	n.enqueueAll(ctx, Payload{Kind: MessageKindSLAEscalated, Incident: inc, Age: age})
}

func (n *Notifier) enqueueAll(ctx context.Context, payload Payload) {
	n.enqueueChannel(ctx, ChannelTypeWebhook, n.recipients.WebhookURLs, payload)
	n.enqueueChannel(ctx, ChannelTypeEmail, n.recipients.Emails, payload)
}

func (n *Notifier) enqueueChannel(ctx context.Context, channel ChannelType, targets []string, payload Payload) {
	if len(targets) == 0 {
		return
	}

	subject, body, err := n.renderer.Render(channel, payload)
	if err != nil {
		slog.Error("failed to render notification",
			"channel", channel,
			"kind", payload.Kind,
			"incident_id", payload.Incident.ID,
			"error", err)
		return
	}

	now := time.Now()
	enqueued := 0
	for _, target := range targets {
		item := QueueItem{
			ID:            uuid.New().String(),
			IncidentID:    payload.Incident.ID,
			Kind:          payload.Kind,
			Channel:       channel,
			To:            target,
			Subject:       subject,
			Body:          body,
			Incident:      payload.Incident,
			Status:        QueueStatusPending,
			MaxAttempts:   n.maxAttempts,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := n.queue.Enqueue(ctx, item); err != nil {
			slog.Error("failed to enqueue notification",
				"channel", channel,
				"kind", payload.Kind,
				"incident_id", payload.Incident.ID,
				"error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		recordQueueEnqueued(string(channel), enqueued)
	}
}
