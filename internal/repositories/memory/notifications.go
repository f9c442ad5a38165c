package memory

import (
	"context"
	"maps"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories"
)

type notificationRepository struct{ s *Store }

func (r notificationRepository) Insert(_ context.Context, notification domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.notifications[notification.ID]; exists {
		return repositories.NewConflictError("notifications.insert", "notification %s already exists", notification.ID)
	}
	notification.Data = maps.Clone(notification.Data)
	r.s.notifications[notification.ID] = notification
	return nil
}

func (r notificationRepository) FindByID(_ context.Context, userID string, notificationID string) (domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findLocked(userID, notificationID)
}

func (r notificationRepository) findLocked(userID, notificationID string) (domain.Notification, error) {
	notification, ok := r.s.notifications[notificationID]
	if !ok || notification.UserID != userID {
		return domain.Notification{}, repositories.NewNotFoundError("notifications.get", "notification %s not found", notificationID)
	}
	return notification, nil
}

func (r notificationRepository) List(_ context.Context, filter repositories.NotificationListFilter) (domain.Page[domain.Notification], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]domain.Notification, 0)
	for _, notification := range r.s.notifications {
		if notification.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && notification.Read {
			continue
		}
		items = append(items, notification)
	}
	sortNewestFirst(items, func(n domain.Notification) time.Time { return n.CreatedAt })
	return paginate(items, filter.Pagination), nil
}

func (r notificationRepository) CountUnread(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for _, notification := range r.s.notifications {
		if notification.UserID == userID && !notification.Read {
			count++
		}
	}
	return count, nil
}

func (r notificationRepository) MarkRead(_ context.Context, userID string, notificationID string, readAt time.Time) (domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification, err := r.findLocked(userID, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	if !notification.Read {
		notification.Read = true
		notification.ReadAt = &readAt
		r.s.notifications[notificationID] = notification
	}
	return notification, nil
}

func (r notificationRepository) MarkAllRead(_ context.Context, userID string, readAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	changed := 0
	for id, notification := range r.s.notifications {
		if notification.UserID != userID || notification.Read {
			continue
		}
		notification.Read = true
		notification.ReadAt = &readAt
		r.s.notifications[id] = notification
		changed++
	}
	return changed, nil
}

func (r notificationRepository) Delete(_ context.Context, userID string, notificationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, err := r.findLocked(userID, notificationID); err != nil {
		return err
	}
	delete(r.s.notifications, notificationID)
	return nil
}

func (r notificationRepository) DeleteAll(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	deleted := 0
	for id, notification := range r.s.notifications {
		if notification.UserID == userID {
			delete(r.s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}
