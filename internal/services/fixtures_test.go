package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campverse/api/internal/platform/events"
)

var errPushUnavailable = errors.New("push unavailable")

type pushedFrame struct {
	UserID string
	Event  string
	Data   any
}

type recordingPusher struct {
	mu     sync.Mutex
	frames []pushedFrame
	err    error
}

func (p *recordingPusher) PushToUser(_ context.Context, userID, event string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, pushedFrame{UserID: userID, Event: event, Data: data})
	return p.err
}

func (p *recordingPusher) events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.frames))
	for _, frame := range p.frames {
		out = append(out, frame.Event)
	}
	return out
}

func (p *recordingPusher) last() pushedFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return pushedFrame{}
	}
	return p.frames[len(p.frames)-1]
}

type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, envelope events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, envelope)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.envelopes))
	for _, envelope := range p.envelopes {
		out = append(out, envelope.EventType)
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	commands []NotifyCommand
}

func (n *recordingNotifier) Notify(_ context.Context, cmd NotifyCommand) (Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commands = append(n.commands, cmd)
	return Notification{ID: fmt.Sprintf("n-%d", len(n.commands)), UserID: cmd.UserID, Type: cmd.Type}, nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.commands))
	for _, cmd := range n.commands {
		out = append(out, cmd.Template)
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequenceIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%06d", prefix, n)
	}
}

func captureLogs() (Logger, func() []string) {
	var (
		mu     sync.Mutex
		logged []string
	)
	logger := func(_ context.Context, event string, _ map[string]any) {
		mu.Lock()
		defer mu.Unlock()
		logged = append(logged, event)
	}
	return logger, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), logged...)
	}
}
