package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/payments"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/requestctx"
	"github.com/campverse/api/internal/services"
)

const (
	maxWebhookBodySize    = 64 * 1024
	stripeSignatureHeader = "Stripe-Signature"
)

// PaymentWebhookHandlers receives PSP callbacks and records payment outcomes.
type PaymentWebhookHandlers struct {
	stripe payments.WebhookParser
	orders services.OrderService
}

// NewPaymentWebhookHandlers constructs PaymentWebhookHandlers. A nil parser disables the
// Stripe route.
func NewPaymentWebhookHandlers(stripe payments.WebhookParser, orders services.OrderService) *PaymentWebhookHandlers {
	return &PaymentWebhookHandlers{stripe: stripe, orders: orders}
}

// Routes registers the /webhooks endpoints.
func (h *PaymentWebhookHandlers) Routes(r chi.Router) {
	r.Post("/payments/stripe", h.stripeWebhook)
}

func (h *PaymentWebhookHandlers) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stripe == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_disabled", "stripe webhooks are not configured", http.StatusServiceUnavailable))
		return
	}
	body, err := readLimitedBody(r, maxWebhookBodySize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	details, err := h.stripe.ParseWebhook(body, r.Header.Get(stripeSignatureHeader))
	switch {
	case errors.Is(err, payments.ErrUnhandledEvent):
		httpx.WriteSuccess(w, http.StatusOK, "event ignored", nil)
		return
	case errors.Is(err, payments.ErrInvalidSignature):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
		return
	case err != nil:
		writeServiceError(ctx, w, err)
		return
	}

	status, ok := paymentStatusFor(details.Status)
	if !ok {
		httpx.WriteSuccess(w, http.StatusOK, "event ignored", nil)
		return
	}

	order, err := h.orders.ConfirmPayment(ctx, services.ConfirmPaymentCommand{
		OrderID:          details.OrderID,
		PaymentReference: details.IntentID,
		Status:           status,
		PaidAt:           details.CapturedAt,
	})
	if errors.Is(err, services.ErrOrderNotFound) {
		// Acknowledge so the PSP stops retrying an intent that was never tied to an order.
		requestctx.Logger(ctx).Warn("payment webhook for unknown order",
			zap.String("intentId", details.IntentID),
			zap.String("orderId", details.OrderID))
		httpx.WriteSuccess(w, http.StatusOK, "event ignored", nil)
		return
	}
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "payment recorded", map[string]string{
		"orderId":       order.ID,
		"paymentStatus": string(order.PaymentStatus),
	})
}

func paymentStatusFor(status payments.Status) (domain.PaymentStatus, bool) {
	switch status {
	case payments.StatusSucceeded:
		return domain.PaymentStatusPaid, true
	case payments.StatusFailed:
		return domain.PaymentStatusFailed, true
	case payments.StatusRefunded:
		return domain.PaymentStatusRefunded, true
	default:
		return "", false
	}
}
