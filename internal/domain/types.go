package domain

import (
	"time"
)

// Page is an offset-paginated list result.
type Page[T any] struct {
	Items []T
	Total int64
}

// Product is a catalogue item whose stock is decremented by order placement.
type Product struct {
	ID        string
	Name      string
	Price     int64
	Currency  string
	Stock     int
	Active    bool
	Images    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cart holds one user's pending purchase lines. The cart id equals the user id.
type Cart struct {
	UserID    string
	Items     []CartItem
	UpdatedAt time.Time
}

// CartItem pairs a product with a requested quantity.
type CartItem struct {
	ProductID string
	Quantity  int
}

// Quantity returns the number of units across every line.
func (c Cart) Quantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// NotificationType classifies notifications for clients.
type NotificationType string

const (
	NotificationTypeOrderStatus   NotificationType = "order_status"
	NotificationTypeBookingStatus NotificationType = "booking_status"
	NotificationTypePayment       NotificationType = "payment"
	NotificationTypeSystem        NotificationType = "system"
	NotificationTypeSupport       NotificationType = "support"
)

// IsValid reports whether the type is a known notification category.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeOrderStatus, NotificationTypeBookingStatus, NotificationTypePayment,
		NotificationTypeSystem, NotificationTypeSupport:
		return true
	default:
		return false
	}
}

// Notification is a persisted message addressed to one user.
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	Read      bool
	ReadAt    *time.Time
	OrderID   string
	BookingID string
	ProductID string
	Data      map[string]any
	CreatedAt time.Time
}

// Message is a direct or support chat message between two users.
type Message struct {
	ID         string
	FromUserID string
	ToUserID   string
	Body       string
	CreatedAt  time.Time
}

// ConversationKey returns an order-independent key identifying the pair of participants.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// HistoryEntry records one status change of an order or booking.
type HistoryEntry struct {
	Status string
	Date   time.Time
	Note   string
	Images []string
	Actor  string
}
