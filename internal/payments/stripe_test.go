package payments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

type fakeIntents struct {
	intents map[string]*stripe.PaymentIntent
	gets    int
}

func (f *fakeIntents) Get(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.gets++
	intent, ok := f.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	return intent, nil
}

type fakeRefunds struct {
	params []*stripe.RefundParams
	onNew  func()
}

func (f *fakeRefunds) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	f.params = append(f.params, params)
	if f.onNew != nil {
		f.onNew()
	}
	return &stripe.Refund{ID: "re_1"}, nil
}

func newTestGateway(t *testing.T, intents *fakeIntents, refunds *fakeRefunds) *StripeGateway {
	t.Helper()
	gateway, err := NewStripeGateway(StripeConfig{
		WebhookSecret: "whsec_test",
		Clients:       &stripeClients{intents: intents, refunds: refunds},
	})
	if err != nil {
		t.Fatalf("NewStripeGateway: %v", err)
	}
	return gateway
}

func TestStripeGatewayLookupPayment(t *testing.T) {
	intents := &fakeIntents{intents: map[string]*stripe.PaymentIntent{
		"pi_ok": {
			ID:       "pi_ok",
			Status:   stripe.PaymentIntentStatusSucceeded,
			Amount:   125000,
			Currency: "vnd",
			Metadata: map[string]string{"orderId": "ord_1"},
			LatestCharge: &stripe.Charge{
				Paid:    true,
				Created: 1_700_000_000,
				Amount:  125000,
			},
		},
		"pi_wait": {ID: "pi_wait", Status: stripe.PaymentIntentStatusRequiresAction},
	}}
	gateway := newTestGateway(t, intents, &fakeRefunds{})

	details, err := gateway.LookupPayment(context.Background(), "pi_ok")
	if err != nil {
		t.Fatalf("LookupPayment: %v", err)
	}
	if details.Status != StatusSucceeded || details.OrderID != "ord_1" || details.Currency != "VND" {
		t.Fatalf("unexpected details %#v", details)
	}
	if details.CapturedAt == nil || !details.CapturedAt.Equal(time.Unix(1_700_000_000, 0)) {
		t.Fatalf("expected captured timestamp, got %v", details.CapturedAt)
	}

	pending, err := gateway.LookupPayment(context.Background(), "pi_wait")
	if err != nil {
		t.Fatalf("LookupPayment: %v", err)
	}
	if pending.Status != StatusPending {
		t.Fatalf("expected pending, got %s", pending.Status)
	}

	if _, err := gateway.LookupPayment(context.Background(), " "); err == nil {
		t.Fatalf("expected error for blank intent id")
	}
}

func TestStripeGatewayRefund(t *testing.T) {
	intent := &stripe.PaymentIntent{
		ID:           "pi_ok",
		Status:       stripe.PaymentIntentStatusSucceeded,
		LatestCharge: &stripe.Charge{Paid: true, Amount: 5000},
	}
	intents := &fakeIntents{intents: map[string]*stripe.PaymentIntent{"pi_ok": intent}}
	refunds := &fakeRefunds{onNew: func() { intent.LatestCharge.AmountRefunded = 5000 }}
	gateway := newTestGateway(t, intents, refunds)

	details, err := gateway.Refund(context.Background(), RefundRequest{IntentID: "pi_ok", Reason: "requested_by_customer", IdempotencyKey: "refund:ord_1"})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if details.Status != StatusRefunded {
		t.Fatalf("expected refunded, got %s", details.Status)
	}
	if len(refunds.params) != 1 || refunds.params[0].Reason == nil || *refunds.params[0].Reason != "requested_by_customer" {
		t.Fatalf("unexpected refund params %#v", refunds.params)
	}
}

func TestStripeGatewayParseWebhook(t *testing.T) {
	gateway := newTestGateway(t, &fakeIntents{}, &fakeRefunds{})

	payload := []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":"payment_intent.succeeded","data":{"object":{"id":"pi_9","object":"payment_intent","status":"succeeded","amount":900,"currency":"usd","metadata":{"orderId":"ord_9"}}}}`, stripe.APIVersion))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: "whsec_test"})

	details, err := gateway.ParseWebhook(signed.Payload, signed.Header)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if details.IntentID != "pi_9" || details.OrderID != "ord_9" || details.Status != StatusSucceeded {
		t.Fatalf("unexpected details %#v", details)
	}

	if _, err := gateway.ParseWebhook(signed.Payload, "t=1,v1=deadbeef"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	other := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{}}}`)
	signedOther := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: other, Secret: "whsec_test"})
	if _, err := gateway.ParseWebhook(signedOther.Payload, signedOther.Header); !errors.Is(err, ErrUnhandledEvent) {
		t.Fatalf("expected ErrUnhandledEvent, got %v", err)
	}
}

func TestNewStripeGatewayRequiresKey(t *testing.T) {
	if _, err := NewStripeGateway(StripeConfig{}); err == nil {
		t.Fatalf("expected api key error")
	}
}
