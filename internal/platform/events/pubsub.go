package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// PubSubPublisher publishes envelopes to a Pub/Sub topic. Messages for the
// same aggregate share an ordering key.
type PubSubPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubPublisher constructs a Pub/Sub backed publisher.
func NewPubSubPublisher(topic *pubsub.Topic) (*PubSubPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	topic.EnableMessageOrdering = true
	return &PubSubPublisher{topic: topic, marshal: json.Marshal}, nil
}

// Publish sends the envelope and waits for the server acknowledgement.
func (p *PubSubPublisher) Publish(ctx context.Context, event Envelope) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType, err)
	}

	attrs := map[string]string{"eventType": event.EventType}
	if event.EventID != "" {
		attrs["eventId"] = event.EventID
	}
	if event.UserID != "" {
		attrs["userId"] = event.UserID
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		Attributes:  attrs,
		OrderingKey: event.CorrelationID,
	})
	if _, err := result.Get(ctx); err != nil {
		if event.CorrelationID != "" {
			p.topic.ResumePublish(event.CorrelationID)
		}
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}
	return nil
}

// Close flushes outstanding messages.
func (p *PubSubPublisher) Close() error {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
	return nil
}
