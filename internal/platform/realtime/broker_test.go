package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerDeliversToChannelSubscribers(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	defer broker.Close()

	alice, err := broker.Subscribe(ctx, UserChannel("alice"))
	require.NoError(t, err)
	bob, err := broker.Subscribe(ctx, UserChannel("bob"))
	require.NoError(t, err)

	frame, err := NewFrame(EventUnreadCountUpdate, map[string]int64{"count": 3})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, "user:alice", frame))

	select {
	case payload := <-alice.Messages():
		var got map[string]any
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, EventUnreadCountUpdate, got["event"])
		assert.Equal(t, map[string]any{"count": float64(3)}, got["data"])
	case <-time.After(time.Second):
		t.Fatal("expected frame for alice")
	}

	select {
	case payload := <-bob.Messages():
		t.Fatalf("bob should not receive alice's frame: %s", payload)
	default:
	}
}

func TestMemoryBrokerSubscriptionClose(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()

	sub, err := broker.Subscribe(ctx, "user:u1")
	require.NoError(t, err)
	assert.Equal(t, 1, broker.Subscribers("user:u1"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, broker.Subscribers("user:u1"))

	_, ok := <-sub.Messages()
	assert.False(t, ok, "closed subscription channel should be drained and closed")

	require.NoError(t, broker.Close())
	assert.ErrorIs(t, broker.Publish(ctx, "user:u1", Frame{Event: "x"}), ErrBrokerClosed)
	_, err = broker.Subscribe(ctx, "user:u1")
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestMemoryBrokerDropsWhenSubscriberIsSlow(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	defer broker.Close()

	sub, err := broker.Subscribe(ctx, "user:slow")
	require.NoError(t, err)

	for i := 0; i < subscriptionBuffer+10; i++ {
		require.NoError(t, broker.Publish(ctx, "user:slow", Frame{Event: EventUserTyping}))
	}
	assert.Len(t, sub.Messages(), subscriptionBuffer)
}

func TestPusherPublishesOnUserChannel(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	defer broker.Close()

	sub, err := broker.Subscribe(ctx, "user:u42")
	require.NoError(t, err)

	require.NoError(t, NewPusher(broker).PushToUser(ctx, "u42", EventNotificationRead, map[string]string{"id": "n1"}))

	payload := <-sub.Messages()
	assert.JSONEq(t, `{"event":"notification_read","data":{"id":"n1"}}`, string(payload))
}
