package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubPublisherPublishesEnvelope(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "campverse-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubPublisher: %v", err)
	}
	defer publisher.Close()

	envelope, err := NewEnvelope("evt_1", TypeOrderCreated, "campverse-api", "ord_1", "user_1",
		time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC), map[string]any{"orderId": "ord_1", "grandTotal": 1200})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := publisher.Publish(ctx, envelope); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var got Envelope
	if err := json.Unmarshal(messages[0].Data, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.EventID != "evt_1" || got.EventType != TypeOrderCreated || got.EventVersion != 1 {
		t.Fatalf("unexpected envelope %#v", got)
	}
	if attr := messages[0].Attributes["eventType"]; attr != TypeOrderCreated {
		t.Fatalf("expected eventType attribute, got %q", attr)
	}
	if messages[0].OrderingKey != "ord_1" {
		t.Fatalf("expected ordering key ord_1, got %q", messages[0].OrderingKey)
	}
}

func TestNewPubSubPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubPublisher(nil); err == nil {
		t.Fatalf("expected error for nil topic")
	}
}
