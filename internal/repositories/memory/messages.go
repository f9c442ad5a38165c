package memory

import (
	"context"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/repositories"
)

type messageRepository struct{ s *Store }

func (r messageRepository) Insert(_ context.Context, message domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.messages[message.ID]; exists {
		return repositories.NewConflictError("messages.insert", "message %s already exists", message.ID)
	}
	r.s.messages[message.ID] = message
	return nil
}

func (r messageRepository) ListConversation(_ context.Context, userA string, userB string, params pagination.Params) (domain.Page[domain.Message], error) {
	key := domain.ConversationKey(userA, userB)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]domain.Message, 0)
	for _, message := range r.s.messages {
		if domain.ConversationKey(message.FromUserID, message.ToUserID) == key {
			items = append(items, message)
		}
	}
	sortNewestFirst(items, func(m domain.Message) time.Time { return m.CreatedAt })
	return paginate(items, params), nil
}
