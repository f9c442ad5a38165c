package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/platform/realtime"
	"github.com/campverse/api/internal/platform/textutil"
	"github.com/campverse/api/internal/repositories"
)

const (
	maxMessageBody    = 2000
	messagePreviewLen = 80
)

// MessageServiceDeps bundles collaborators for direct and support messaging.
type MessageServiceDeps struct {
	Messages    repositories.MessageRepository
	Pusher      Pusher
	Notifier    Notifier
	Clock       func() time.Time
	IDGenerator func() string
	Logger      Logger
}

type messageService struct {
	repo     repositories.MessageRepository
	pusher   Pusher
	notifier Notifier
	clock    func() time.Time
	newID    func() string
	logger   Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(deps MessageServiceDeps) (MessageService, error) {
	if deps.Messages == nil {
		return nil, errors.New("message service: message repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &messageService{
		repo:     deps.Messages,
		pusher:   deps.Pusher,
		notifier: deps.Notifier,
		clock:    func() time.Time { return clock().UTC() },
		newID:    newID,
		logger:   logger,
	}, nil
}

func (s *messageService) SendMessage(ctx context.Context, cmd SendMessageCommand) (Message, error) {
	from := strings.TrimSpace(cmd.FromUserID)
	to := strings.TrimSpace(cmd.ToUserID)
	body := textutil.PlainText(cmd.Body, maxMessageBody)

	v := newValidation(ErrMessageValidation)
	if from == "" {
		v.addf("fromUserId is required")
	}
	if to == "" {
		v.addf("toUserId is required")
	}
	if from != "" && from == to {
		v.addf("cannot send a message to yourself")
	}
	if body == "" {
		v.addf("body is required")
	}
	if err := v.err(); err != nil {
		return Message{}, err
	}

	message := Message{
		ID:         s.newID(),
		FromUserID: from,
		ToUserID:   to,
		Body:       body,
		CreatedAt:  s.clock(),
	}
	if err := s.repo.Insert(ctx, message); err != nil {
		return Message{}, fmt.Errorf("message: persist: %w", err)
	}

	s.push(ctx, to, realtime.EventSupportNewMessage, NewMessagePayload(message))
	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, NotifyCommand{
			UserID:   to,
			Type:     domain.NotificationTypeSupport,
			Template: templateSupportMessage,
			Args:     []any{preview(body, messagePreviewLen)},
			Data:     map[string]any{"messageId": message.ID, "fromUserId": from},
		}); err != nil {
			s.logger(ctx, "message.notify.failed", map[string]any{"messageId": message.ID, "error": err})
		}
	}
	return message, nil
}

func (s *messageService) ListConversation(ctx context.Context, userID string, otherUserID string, params pagination.Params) (domain.Page[Message], error) {
	userID, otherUserID = strings.TrimSpace(userID), strings.TrimSpace(otherUserID)
	if userID == "" || otherUserID == "" {
		return domain.Page[Message]{}, &ValidationError{Kind: ErrMessageValidation, Fields: []string{"both participants are required"}}
	}
	return s.repo.ListConversation(ctx, userID, otherUserID, normalizePage(params))
}

// Typing relays a typing indicator. Nothing is persisted.
func (s *messageService) Typing(ctx context.Context, fromUserID string, toUserID string) error {
	fromUserID, toUserID = strings.TrimSpace(fromUserID), strings.TrimSpace(toUserID)
	if fromUserID == "" || toUserID == "" || fromUserID == toUserID {
		return &ValidationError{Kind: ErrMessageValidation, Fields: []string{"typing requires two distinct users"}}
	}
	s.push(ctx, toUserID, realtime.EventUserTyping, map[string]any{"from": fromUserID})
	return nil
}

func (s *messageService) push(ctx context.Context, userID, event string, data any) {
	if s.pusher == nil {
		return
	}
	if err := s.pusher.PushToUser(ctx, userID, event, data); err != nil {
		s.logger(ctx, "message.push.failed", map[string]any{"userId": userID, "event": event, "error": err})
	}
}

// MessagePayload is the JSON shape of a message on the wire.
type MessagePayload struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewMessagePayload converts a message to its wire shape.
func NewMessagePayload(m Message) MessagePayload {
	return MessagePayload{
		ID:         m.ID,
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
	}
}

func preview(body string, limit int) string {
	runes := []rune(body)
	if len(runes) <= limit {
		return body
	}
	return string(runes[:limit]) + "…"
}
