package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	writer := &recordingWriter{}
	publisher := &KafkaPublisher{writer: writer}

	envelope, err := NewEnvelope("evt_2", TypeBookingCreated, "campverse-api", "bk_1", "user_9",
		time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), map[string]string{"code": "BK2501021234"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := publisher.Publish(context.Background(), envelope); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "bk_1" {
		t.Fatalf("expected key bk_1, got %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != TypeBookingCreated {
		t.Fatalf("unexpected headers %#v", msg.Headers)
	}
	var got Envelope
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got.Payload) != `{"code":"BK2501021234"}` {
		t.Fatalf("unexpected payload %s", got.Payload)
	}

	if err := publisher.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer to be closed")
	}
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	boom := errors.New("broker down")
	publisher := &KafkaPublisher{writer: &recordingWriter{err: boom}}

	err := publisher.Publish(context.Background(), Envelope{EventType: TypeOrderCreated})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestNewKafkaPublisherValidates(t *testing.T) {
	if _, err := NewKafkaPublisher(nil, "topic"); err == nil {
		t.Fatalf("expected brokers error")
	}
	if _, err := NewKafkaPublisher([]string{"localhost:9092"}, ""); err == nil {
		t.Fatalf("expected topic error")
	}
}
