package realtime

import (
	"context"
	"fmt"
)

// Pusher sends a single event to one user's channel.
type Pusher struct {
	broker Broker
}

// NewPusher wraps broker.
func NewPusher(broker Broker) *Pusher {
	return &Pusher{broker: broker}
}

// PushToUser publishes event with data on "user:<id>".
func (p *Pusher) PushToUser(ctx context.Context, userID, event string, data any) error {
	if p == nil || p.broker == nil {
		return fmt.Errorf("realtime: pusher not configured")
	}
	frame, err := NewFrame(event, data)
	if err != nil {
		return fmt.Errorf("realtime: encode %s: %w", event, err)
	}
	return p.broker.Publish(ctx, UserChannel(userID), frame)
}
