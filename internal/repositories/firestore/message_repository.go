package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	domain "github.com/campverse/api/internal/domain"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/platform/pagination"
)

const messagesCollection = "messages"

// MessageRepository persists direct messages with a denormalised conversation key.
type MessageRepository struct {
	base *pfirestore.Collection[messageDocument]
}

// NewMessageRepository constructs a Firestore-backed message repository.
func NewMessageRepository(provider *pfirestore.Provider) (*MessageRepository, error) {
	if provider == nil {
		return nil, errors.New("message repository requires firestore provider")
	}
	return &MessageRepository{base: pfirestore.NewCollection[messageDocument](provider, messagesCollection)}, nil
}

func (r *MessageRepository) Insert(ctx context.Context, message domain.Message) error {
	err := r.base.Create(ctx, message.ID, messageDocument{
		ConversationKey: domain.ConversationKey(message.FromUserID, message.ToUserID),
		FromUserID:      message.FromUserID,
		ToUserID:        message.ToUserID,
		Body:            message.Body,
		CreatedAt:       message.CreatedAt.UTC(),
	})
	return err
}

func (r *MessageRepository) ListConversation(ctx context.Context, userA string, userB string, params pagination.Params) (domain.Page[domain.Message], error) {
	key := domain.ConversationKey(userA, userB)
	where := func(q firestore.Query) firestore.Query {
		return q.Where("conversationKey", "==", key)
	}
	return listPage(ctx, r.base, where, newestFirst, params, func(id string, doc messageDocument) domain.Message {
		return domain.Message{
			ID:         id,
			FromUserID: doc.FromUserID,
			ToUserID:   doc.ToUserID,
			Body:       doc.Body,
			CreatedAt:  doc.CreatedAt,
		}
	})
}
