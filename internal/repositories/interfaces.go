package repositories

import (
	"context"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Orders() OrderRepository
	Bookings() BookingRepository
	Carts() CartRepository
	Notifications() NotificationRepository
	Messages() MessageRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository reads catalogue products. Stock is only mutated by OrderRepository.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.Page[domain.Product], error)
	Upsert(ctx context.Context, product domain.Product) error
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	ActiveOnly bool
	Pagination pagination.Params
}

// OrderLine is a requested product quantity prior to price capture.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// PlaceOrderRequest carries everything needed to place an order atomically.
type PlaceOrderRequest struct {
	// Order is persisted after Items and Totals are filled from the products read in
	// the transaction.
	Order domain.Order
	Lines []OrderLine
	// Totals prices the captured items.
	Totals func(items []domain.OrderItem) domain.OrderTotals
	// ClearCartOf deletes the named user's cart in the same transaction when non-empty.
	ClearCartOf string
}

// OrderMutator changes an order read inside a transaction. Returning restock=true restores
// the stock of every line in the same transaction.
type OrderMutator func(order *domain.Order) (restock bool, err error)

// OrderRepository persists orders and owns every stock mutation.
type OrderRepository interface {
	// Place reads every product, fails with a StockError when any quantity exceeds the
	// remaining stock, and otherwise decrements stock and creates the order in one
	// transaction.
	Place(ctx context.Context, req PlaceOrderRequest) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
	Mutate(ctx context.Context, orderID string, fn OrderMutator) (domain.Order, error)
	// ListExpired returns unpaid cash-on-delivery orders created before cutoff, oldest first.
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
	// Expire re-checks the expiry predicate, restores stock and deletes the order in one
	// transaction. It reports false when the order no longer qualifies.
	Expire(ctx context.Context, orderID string, cutoff time.Time) (bool, error)
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID     string
	Status     domain.OrderStatus
	Pagination pagination.Params
}

// BookingRepository persists tour bookings and their unique codes.
type BookingRepository interface {
	// Create stores the booking and reserves its code. A taken code yields a conflict error.
	Create(ctx context.Context, booking domain.Booking) error
	FindByID(ctx context.Context, bookingID string) (domain.Booking, error)
	FindByCode(ctx context.Context, code string) (domain.Booking, error)
	List(ctx context.Context, filter BookingListFilter) (domain.Page[domain.Booking], error)
	Mutate(ctx context.Context, bookingID string, fn func(booking *domain.Booking) error) (domain.Booking, error)
}

// BookingListFilter narrows booking listings.
type BookingListFilter struct {
	UserID     string
	Status     domain.BookingStatus
	Pagination pagination.Params
}

// CartRepository persists one cart per user.
type CartRepository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	FindByID(ctx context.Context, userID string, notificationID string) (domain.Notification, error)
	List(ctx context.Context, filter NotificationListFilter) (domain.Page[domain.Notification], error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, notificationID string, readAt time.Time) (domain.Notification, error)
	// MarkAllRead marks every unread notification of the user as read and returns how many changed.
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int, error)
	Delete(ctx context.Context, userID string, notificationID string) error
	DeleteAll(ctx context.Context, userID string) (int, error)
}

// NotificationListFilter narrows notification listings.
type NotificationListFilter struct {
	UserID     string
	UnreadOnly bool
	Pagination pagination.Params
}

// MessageRepository persists direct messages.
type MessageRepository interface {
	Insert(ctx context.Context, message domain.Message) error
	// ListConversation returns messages exchanged between the two users, newest first.
	ListConversation(ctx context.Context, userA string, userB string, params pagination.Params) (domain.Page[domain.Message], error)
}

// HealthRepository surfaces dependency health for readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
