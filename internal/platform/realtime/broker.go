package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrBrokerClosed is returned after Close.
var ErrBrokerClosed = errors.New("realtime: broker closed")

const subscriptionBuffer = 64

// Broker fans frames out to every subscriber of a channel.
type Broker interface {
	Publish(ctx context.Context, channel string, frame Frame) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription delivers encoded frames until closed.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// MemoryBroker is a process-local Broker for single-instance deployments and tests.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

// NewMemoryBroker constructs an empty in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[*memorySubscription]struct{})}
}

// Publish delivers to current subscribers. Slow subscribers whose buffer is
// full miss the frame instead of blocking the publisher.
func (b *MemoryBroker) Publish(_ context.Context, channel string, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("realtime: encode frame: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}
	for sub := range b.subs[channel] {
		sub.deliver(payload)
	}
	return nil
}

// Subscribe registers a subscription on channel.
func (b *MemoryBroker) Subscribe(_ context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		ch:      make(chan []byte, subscriptionBuffer),
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	return sub, nil
}

// Subscribers reports the live subscription count for channel.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Close terminates every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			sub.closeLocked()
		}
	}
	b.subs = nil
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[sub.channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.channel)
		}
	}
	sub.closeLocked()
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	ch      chan []byte
	once    sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.broker.remove(s)
	return nil
}

func (s *memorySubscription) deliver(payload []byte) {
	select {
	case s.ch <- payload:
	default:
	}
}

// closeLocked must be called with the broker write lock held so no Publish
// can race the channel close.
func (s *memorySubscription) closeLocked() {
	s.once.Do(func() { close(s.ch) })
}
