package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker relays frames through Redis pub/sub so every API instance
// sees pushes for the users connected to it.
type RedisBroker struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

// NewRedisBroker wraps a client owned by the caller. Channel names are
// namespaced with prefix.
func NewRedisBroker(client *redis.Client, prefix string) *RedisBroker {
	return &RedisBroker{client: client, prefix: prefix, subs: make(map[*redisSubscription]struct{})}
}

// Publish encodes the frame and publishes it on the namespaced channel.
func (b *RedisBroker) Publish(ctx context.Context, channel string, frame Frame) error {
	if b.isClosed() {
		return ErrBrokerClosed
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("realtime: encode frame: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("realtime: redis publish: %w", err)
	}
	return nil
}

// Subscribe waits for the subscription confirmation before returning, so
// frames published afterwards are never missed.
func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if b.isClosed() {
		return nil, ErrBrokerClosed
	}
	pubsub := b.client.Subscribe(ctx, b.prefix+channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("realtime: redis subscribe: %w", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		ch:     make(chan []byte, subscriptionBuffer),
		done:   make(chan struct{}),
		broker: b,
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, ErrBrokerClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	go sub.forward()
	return sub, nil
}

// Close ends every subscription opened through the broker. The client stays
// open for its other users.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	clear(b.subs)
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *RedisBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *RedisBroker) release(sub *redisSubscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan []byte
	done   chan struct{}
	once   sync.Once
	broker *RedisBroker
}

func (s *redisSubscription) Messages() <-chan []byte { return s.ch }

func (s *redisSubscription) forward() {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.pubsub.Channel():
			if !ok {
				return
			}
			select {
			case s.ch <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		if s.broker != nil {
			s.broker.release(s)
		}
	})
	return err
}
