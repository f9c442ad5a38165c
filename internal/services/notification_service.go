package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/realtime"
	"github.com/campverse/api/internal/platform/textutil"
	"github.com/campverse/api/internal/repositories"
)

const (
	maxNotificationTitle   = 120
	maxNotificationMessage = 1000
)

// NotificationServiceDeps bundles collaborators for the notification service.
type NotificationServiceDeps struct {
	Notifications repositories.NotificationRepository
	Pusher        Pusher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type notificationService struct {
	repo   repositories.NotificationRepository
	pusher Pusher
	clock  func() time.Time
	newID  func() string
	logger Logger
}

// NewNotificationService wires the notification fan-out.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("notification service: notification repository is required")
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
	return &notificationService{
		repo:   deps.Notifications,
		pusher: deps.Pusher,
		clock:  func() time.Time { return clock().UTC() },
		newID:  newID,
		logger: logger,
	}, nil
}

// Notify persists the notification, then pushes new_notification and unread_count_update.
func (s *notificationService) Notify(ctx context.Context, cmd NotifyCommand) (Notification, error) {
	userID := strings.TrimSpace(cmd.UserID)
	title, message := cmd.Title, cmd.Message
	if cmd.Template != "" {
		title, message = renderNotification(cmd.Locale, cmd.Template, cmd.Args...)
	}
	title = textutil.PlainText(title, maxNotificationTitle)
	message = textutil.PlainText(message, maxNotificationMessage)

	v := newValidation(ErrNotificationValidation)
	if userID == "" {
		v.addf("userId is required")
	}
	if !cmd.Type.IsValid() {
		v.addf("type %q is not supported", cmd.Type)
	}
	if title == "" {
		v.addf("title is required")
	}
	if err := v.err(); err != nil {
		return Notification{}, err
	}

	notification := Notification{
		ID:        s.newID(),
		UserID:    userID,
		Type:      cmd.Type,
		Title:     title,
		Message:   message,
		OrderID:   cmd.OrderID,
		BookingID: cmd.BookingID,
		ProductID: cmd.ProductID,
		Data:      textutil.CleanData(cmd.Data),
		CreatedAt: s.clock(),
	}
	if err := s.repo.Insert(ctx, notification); err != nil {
		return Notification{}, fmt.Errorf("notification: persist: %w", err)
	}

	s.push(ctx, userID, realtime.EventNewNotification, NewNotificationPayload(notification))
	s.pushUnreadCount(ctx, userID)
	return notification, nil
}

func (s *notificationService) List(ctx context.Context, filter NotificationListFilter) (domain.Page[Notification], error) {
	return s.repo.List(ctx, repositories.NotificationListFilter{
		UserID:     filter.UserID,
		UnreadOnly: filter.UnreadOnly,
		Pagination: normalizePage(filter.Pagination),
	})
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, notificationID string) (Notification, error) {
	notification, err := s.repo.MarkRead(ctx, userID, notificationID, s.clock())
	if err != nil {
		return Notification{}, mapRepositoryError(err, ErrNotificationNotFound, nil)
	}
	s.push(ctx, userID, realtime.EventNotificationRead, map[string]any{"id": notification.ID, "readAt": notification.ReadAt})
	s.pushUnreadCount(ctx, userID)
	return notification, nil
}

// MarkAllRead is idempotent: a second call changes nothing and still reports zero unread.
func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	changed, err := s.repo.MarkAllRead(ctx, userID, s.clock())
	if err != nil {
		return 0, err
	}
	s.push(ctx, userID, realtime.EventUnreadCountUpdate, unreadCountPayload{Count: 0})
	return changed, nil
}

func (s *notificationService) Delete(ctx context.Context, userID string, notificationID string) error {
	if err := s.repo.Delete(ctx, userID, notificationID); err != nil {
		return mapRepositoryError(err, ErrNotificationNotFound, nil)
	}
	s.pushUnreadCount(ctx, userID)
	return nil
}

func (s *notificationService) DeleteAll(ctx context.Context, userID string) (int, error) {
	deleted, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return deleted, err
	}
	s.push(ctx, userID, realtime.EventUnreadCountUpdate, unreadCountPayload{Count: 0})
	return deleted, nil
}

func (s *notificationService) pushUnreadCount(ctx context.Context, userID string) {
	if s.pusher == nil {
		return
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger(ctx, "notification.unread_count.failed", map[string]any{"userId": userID, "error": err})
		return
	}
	s.push(ctx, userID, realtime.EventUnreadCountUpdate, unreadCountPayload{Count: count})
}

// push is fire-and-forget. Offline clients read the persisted record on reconnect.
func (s *notificationService) push(ctx context.Context, userID, event string, data any) {
	if s.pusher == nil {
		return
	}
	if err := s.pusher.PushToUser(ctx, userID, event, data); err != nil {
		s.logger(ctx, "notification.push.failed", map[string]any{
			"userId": userID,
			"event":  event,
			"error":  err,
		})
	}
}

type unreadCountPayload struct {
	Count int64 `json:"count"`
}

// NotificationPayload is the JSON shape of a notification on the wire.
type NotificationPayload struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Read      bool           `json:"read"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
	OrderID   string         `json:"orderId,omitempty"`
	BookingID string         `json:"bookingId,omitempty"`
	ProductID string         `json:"productId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewNotificationPayload converts a notification to its wire shape.
func NewNotificationPayload(n Notification) NotificationPayload {
	return NotificationPayload{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		OrderID:   n.OrderID,
		BookingID: n.BookingID,
		ProductID: n.ProductID,
		Data:      n.Data,
		CreatedAt: n.CreatedAt,
	}
}
