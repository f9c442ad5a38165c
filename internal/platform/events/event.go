// Package events carries domain events out of the API process. Publishing is
// best effort from the caller's point of view: the write path has already
// committed by the time an event is emitted.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event types emitted by the order and booking lifecycles.
const (
	TypeOrderCreated         = "order.created"
	TypeOrderStatusChanged   = "order.status_changed"
	TypeOrderPaymentUpdated  = "order.payment_updated"
	TypeOrderExpired         = "order.expired"
	TypeBookingCreated       = "booking.created"
	TypeBookingStatusChanged = "booking.status_changed"
)

const envelopeVersion = 1

// Envelope is the wire format shared by every transport.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlationId,omitempty"`
	UserID        string          `json:"userId,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps the envelope metadata.
func NewEnvelope(id, eventType, producer, correlationID, userID string, occurredAt time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       id,
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    occurredAt.UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		UserID:        userID,
		Payload:       data,
	}, nil
}

// Publisher delivers envelopes to a transport.
type Publisher interface {
	Publish(ctx context.Context, event Envelope) error
	Close() error
}

// NopPublisher drops every event. Used when API_EVENTS_DRIVER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Envelope) error { return nil }
func (NopPublisher) Close() error                            { return nil }
