package payments

import (
	"context"
	"errors"
	"time"
)

// Status enumerates the normalised payment states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var (
	// ErrGatewayNotConfigured is returned when card payments are attempted without PSP credentials.
	ErrGatewayNotConfigured = errors.New("payments: gateway not configured")
	// ErrInvalidSignature is returned for webhooks whose signature does not verify.
	ErrInvalidSignature = errors.New("payments: invalid webhook signature")
	// ErrUnhandledEvent marks webhook events the API does not act on.
	ErrUnhandledEvent = errors.New("payments: unhandled webhook event")
)

// PaymentDetails normalises PSP specific fields for storage.
type PaymentDetails struct {
	Provider   string
	IntentID   string
	Status     Status
	Amount     int64
	Currency   string
	OrderID    string
	CapturedAt *time.Time
}

// RefundRequest defines a PSP refund attempt. A nil Amount refunds in full.
type RefundRequest struct {
	IntentID       string
	Amount         *int64
	Reason         string
	IdempotencyKey string
}

// Gateway is the PSP surface the order lifecycle depends on.
type Gateway interface {
	LookupPayment(ctx context.Context, intentID string) (PaymentDetails, error)
	Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error)
}

// WebhookParser verifies and decodes PSP webhook deliveries.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (PaymentDetails, error)
}
