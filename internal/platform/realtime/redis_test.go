package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBrokerCloseLeavesClientOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	broker := NewRedisBroker(client, "test:")
	require.NoError(t, broker.Close())
	require.NoError(t, broker.Close())

	frame, err := NewFrame(EventUnreadCountUpdate, map[string]int{"count": 1})
	require.NoError(t, err)
	assert.ErrorIs(t, broker.Publish(context.Background(), UserChannel("u1"), frame), ErrBrokerClosed)
	_, err = broker.Subscribe(context.Background(), UserChannel("u1"))
	assert.ErrorIs(t, err, ErrBrokerClosed)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = client.Ping(ctx).Err()
	require.Error(t, err)
	assert.False(t, errors.Is(err, redis.ErrClosed), "client must stay open after the broker closes")
}
