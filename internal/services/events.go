package services

import (
	"context"
	"time"

	"github.com/campverse/api/internal/platform/events"
)

const eventProducer = "campverse-api"

// eventEmitter publishes domain events. Failures are logged and never surface to callers
// because the persisted record is authoritative.
type eventEmitter struct {
	publisher events.Publisher
	newID     func() string
	logger    Logger
}

func (e eventEmitter) emit(ctx context.Context, eventType, correlationID, userID string, occurredAt time.Time, payload any) {
	if e.publisher == nil {
		return
	}
	envelope, err := events.NewEnvelope(e.newID(), eventType, eventProducer, correlationID, userID, occurredAt, payload)
	if err != nil {
		e.logger(ctx, "event.encode.failed", map[string]any{"type": eventType, "error": err})
		return
	}
	if err := e.publisher.Publish(ctx, envelope); err != nil {
		e.logger(ctx, "event.publish.failed", map[string]any{
			"type":  eventType,
			"id":    correlationID,
			"error": err,
		})
	}
}

type orderEventPayload struct {
	OrderID        string `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	UserID         string `json:"userId"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	PaymentStatus  string `json:"paymentStatus"`
	GrandTotal     int64  `json:"grandTotal"`
	ActorID        string `json:"actorId,omitempty"`
}

func newOrderEventPayload(order Order, previous OrderStatus, actor string) orderEventPayload {
	return orderEventPayload{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         string(order.Status),
		PreviousStatus: string(previous),
		PaymentStatus:  string(order.PaymentStatus),
		GrandTotal:     order.Totals.GrandTotal,
		ActorID:        actor,
	}
}

type bookingEventPayload struct {
	BookingID      string `json:"bookingId"`
	Code           string `json:"code"`
	UserID         string `json:"userId"`
	TourID         string `json:"tourId"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	TotalPeople    int    `json:"totalPeople"`
	ActorID        string `json:"actorId,omitempty"`
}

func newBookingEventPayload(booking Booking, previous BookingStatus, actor string) bookingEventPayload {
	return bookingEventPayload{
		BookingID:      booking.ID,
		Code:           booking.Code,
		UserID:         booking.UserID,
		TourID:         booking.TourID,
		Status:         string(booking.Status),
		PreviousStatus: string(previous),
		TotalPeople:    booking.TotalPeople(),
		ActorID:        actor,
	}
}
