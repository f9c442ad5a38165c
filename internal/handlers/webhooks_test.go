package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/payments"
	"github.com/campverse/api/internal/services"
)

func newWebhookRouter(parser payments.WebhookParser, orders services.OrderService) chi.Router {
	r := chi.NewRouter()
	r.Route("/webhooks", NewPaymentWebhookHandlers(parser, orders).Routes)
	return r
}

func TestPaymentWebhook_SucceededMarksPaid(t *testing.T) {
	captured := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	parser := &stubWebhookParser{details: payments.PaymentDetails{
		Provider:   "stripe",
		IntentID:   "pi_123",
		Status:     payments.StatusSucceeded,
		OrderID:    "ord_1",
		CapturedAt: &captured,
	}}
	orders := &stubOrderService{orders: map[string]services.Order{"ord_1": {ID: "ord_1"}}}
	router := newWebhookRouter(parser, orders)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if parser.received != "t=1,v1=abc" || string(parser.payload) != `{"id":"evt_1"}` {
		t.Fatalf("parser received unexpected input: sig=%q payload=%q", parser.received, parser.payload)
	}
	if len(orders.confirmations) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(orders.confirmations))
	}
	cmd := orders.confirmations[0]
	if cmd.Status != domain.PaymentStatusPaid || cmd.PaymentReference != "pi_123" || cmd.OrderID != "ord_1" {
		t.Fatalf("unexpected confirmation %+v", cmd)
	}
	if cmd.PaidAt == nil || !cmd.PaidAt.Equal(captured) {
		t.Fatalf("expected capture time to be forwarded, got %v", cmd.PaidAt)
	}
}

func TestPaymentWebhook_InvalidSignature(t *testing.T) {
	orders := &stubOrderService{}
	router := newWebhookRouter(&stubWebhookParser{err: payments.ErrInvalidSignature}, orders)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", strings.NewReader(`{}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if len(orders.confirmations) != 0 {
		t.Fatalf("orders must not be touched on bad signatures")
	}
}

func TestPaymentWebhook_IgnoredEvents(t *testing.T) {
	cases := map[string]*stubWebhookParser{
		"unhandled type": {err: payments.ErrUnhandledEvent},
		"pending intent": {details: payments.PaymentDetails{IntentID: "pi_1", Status: payments.StatusPending}},
	}
	for name, parser := range cases {
		t.Run(name, func(t *testing.T) {
			orders := &stubOrderService{}
			router := newWebhookRouter(parser, orders)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", strings.NewReader(`{}`)))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200 ack, got %d", rr.Code)
			}
			if len(orders.confirmations) != 0 {
				t.Fatalf("expected no confirmation, got %d", len(orders.confirmations))
			}
		})
	}
}

func TestPaymentWebhook_UnknownOrderIsAcknowledged(t *testing.T) {
	parser := &stubWebhookParser{details: payments.PaymentDetails{IntentID: "pi_orphan", Status: payments.StatusFailed}}
	orders := &stubOrderService{confirmErr: services.ErrOrderNotFound}
	router := newWebhookRouter(parser, orders)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", strings.NewReader(`{}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if orders.confirmations[0].Status != domain.PaymentStatusFailed {
		t.Fatalf("expected failed status, got %q", orders.confirmations[0].Status)
	}
}

func TestPaymentWebhook_StoreFailureIsRetried(t *testing.T) {
	parser := &stubWebhookParser{details: payments.PaymentDetails{IntentID: "pi_1", OrderID: "ord_1", Status: payments.StatusRefunded}}
	orders := &stubOrderService{confirmErr: errors.New("firestore unavailable")}
	router := newWebhookRouter(parser, orders)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", strings.NewReader(`{}`)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 so the provider retries, got %d", rr.Code)
	}
}

func TestPaymentWebhook_DisabledWithoutParser(t *testing.T) {
	router := newWebhookRouter(nil, &stubOrderService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/payments/stripe", strings.NewReader(`{}`)))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}
