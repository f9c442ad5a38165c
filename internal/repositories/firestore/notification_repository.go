package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/campverse/api/internal/domain"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/repositories"
)

const notificationsCollection = "notifications"

// NotificationRepository persists notifications. Mark-all-read and delete-all
// fan out through a BulkWriter over the recipient's documents.
type NotificationRepository struct {
	base *pfirestore.Collection[notificationDocument]
}

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository requires firestore provider")
	}
	return &NotificationRepository{
		base: pfirestore.NewCollection[notificationDocument](provider, notificationsCollection),
	}, nil
}

func (r *NotificationRepository) Insert(ctx context.Context, notification domain.Notification) error {
	err := r.base.Create(ctx, notification.ID, newNotificationDocument(notification))
	return err
}

func (r *NotificationRepository) FindByID(ctx context.Context, userID string, notificationID string) (domain.Notification, error) {
	doc, err := r.base.Get(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	if doc.Data.UserID != userID {
		return domain.Notification{}, repositories.NewNotFoundError("notifications.get", "notification %s not found", notificationID)
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *NotificationRepository) List(ctx context.Context, filter repositories.NotificationListFilter) (domain.Page[domain.Notification], error) {
	where := func(q firestore.Query) firestore.Query {
		q = q.Where("userId", "==", filter.UserID)
		if filter.UnreadOnly {
			q = q.Where("read", "==", false)
		}
		return q
	}
	return listPage(ctx, r.base, where, newestFirst, filter.Pagination, func(id string, doc notificationDocument) domain.Notification {
		return doc.toDomain(id)
	})
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	return r.base.Count(ctx, unreadOf(userID))
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, notificationID string, readAt time.Time) (domain.Notification, error) {
	notification, err := r.FindByID(ctx, userID, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	if notification.Read {
		return notification, nil
	}
	at := readAt.UTC()
	if err := r.base.Update(ctx, notificationID, []firestore.Update{
		{Path: "read", Value: true},
		{Path: "readAt", Value: at},
	}); err != nil {
		return domain.Notification{}, err
	}
	notification.Read = true
	notification.ReadAt = &at
	return notification, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int, error) {
	return r.base.BulkApply(ctx, unreadOf(userID), func(bw *firestore.BulkWriter, ref *firestore.DocumentRef) (*firestore.BulkWriterJob, error) {
		return bw.Update(ref, []firestore.Update{
			{Path: "read", Value: true},
			{Path: "readAt", Value: readAt.UTC()},
		})
	})
}

func (r *NotificationRepository) Delete(ctx context.Context, userID string, notificationID string) error {
	if _, err := r.FindByID(ctx, userID, notificationID); err != nil {
		return err
	}
	return r.base.Delete(ctx, notificationID)
}

func (r *NotificationRepository) DeleteAll(ctx context.Context, userID string) (int, error) {
	return r.base.BulkApply(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID)
	}, func(bw *firestore.BulkWriter, ref *firestore.DocumentRef) (*firestore.BulkWriterJob, error) {
		return bw.Delete(ref)
	})
}

func unreadOf(userID string) pfirestore.QueryBuilder {
	return func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).Where("read", "==", false)
	}
}
