// Package notifications queues and delivers outbound notifications for
// incident lifecycle and SLA events.
package notifications

import (
	"context"

	"github.com/opsdesk/incident-desk/internal/domain"
)

// Notification is a rendered message ready for delivery.
type Notification struct {
	To       string           `json:"to"`
	Subject  string           `json:"subject"`
	Body     string           `json:"body"`
	Incident *domain.Incident `json:"incident,omitempty"`
}

// Sender delivers notifications over a single channel.
type Sender interface {
	Type() ChannelType
	Send(ctx context.Context, notification Notification) error
}
