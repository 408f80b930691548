package notifications

import (
	"context"
	"fmt"
)

// Dispatcher routes notifications to the sender for their channel.
type Dispatcher struct {
	senders map[ChannelType]Sender
}

// NewDispatcher creates a new notification dispatcher.
func NewDispatcher(senders ...Sender) *Dispatcher {
	senderMap := make(map[ChannelType]Sender)
	for _, s := range senders {
		senderMap[s.Type()] = s
	}
	return &Dispatcher{senders: senderMap}
}

// SendToChannel delivers a notification over the given channel.
func (d *Dispatcher) SendToChannel(ctx context.Context, channel ChannelType, notification Notification) error {
	sender, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("no sender for channel type %s", channel)
	}
	return sender.Send(ctx, notification)
}
