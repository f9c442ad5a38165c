package services

import (
	"context"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	OrderTotals        = domain.OrderTotals
	Address            = domain.Address
	Booking            = domain.Booking
	BookingCustomer    = domain.BookingCustomer
	BookingStatus      = domain.BookingStatus
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	Notification       = domain.Notification
	NotificationType   = domain.NotificationType
	Message            = domain.Message
	SystemHealthReport = domain.SystemHealthReport
)

// Logger is the structured event hook services report through.
type Logger func(ctx context.Context, event string, fields map[string]any)

// OrderService owns the order lifecycle: placement, status transitions, payments and refunds.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.Page[Order], error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (Order, error)
	RefundOrder(ctx context.Context, cmd RefundOrderCommand) (Order, error)
}

// BookingService owns the tour booking lifecycle.
type BookingService interface {
	CreateBooking(ctx context.Context, cmd CreateBookingCommand) (Booking, error)
	GetBooking(ctx context.Context, bookingID string) (Booking, error)
	GetBookingByCode(ctx context.Context, code string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingListFilter) (domain.Page[Booking], error)
	UpdateStatus(ctx context.Context, cmd UpdateBookingStatusCommand) (Booking, error)
	CancelBooking(ctx context.Context, cmd CancelBookingCommand) (Booking, error)
}

// NotificationService persists notifications and pushes them to connected clients.
type NotificationService interface {
	Notifier
	List(ctx context.Context, filter NotificationListFilter) (domain.Page[Notification], error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, notificationID string) (Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string, notificationID string) error
	DeleteAll(ctx context.Context, userID string) (int, error)
}

// Notifier is the fan-out entry point lifecycle services depend on.
type Notifier interface {
	Notify(ctx context.Context, cmd NotifyCommand) (Notification, error)
}

// CartService manages the single cart each user owns.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd CartItemCommand) (Cart, error)
	UpdateItem(ctx context.Context, cmd CartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, userID string, productID string) (Cart, error)
	Clear(ctx context.Context, userID string) error
}

// MessageService relays direct and support messages.
type MessageService interface {
	SendMessage(ctx context.Context, cmd SendMessageCommand) (Message, error)
	ListConversation(ctx context.Context, userID string, otherUserID string, params pagination.Params) (domain.Page[Message], error)
	Typing(ctx context.Context, fromUserID string, toUserID string) error
}

// CatalogService exposes read access to products.
type CatalogService interface {
	ListProducts(ctx context.Context, params pagination.Params) (domain.Page[Product], error)
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// SystemService reports dependency health for readiness probes.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// Pusher delivers real-time frames to a user's channel.
type Pusher interface {
	PushToUser(ctx context.Context, userID string, event string, data any) error
}

// CreateOrderCommand places an order for UserID.
type CreateOrderCommand struct {
	UserID           string
	Items            []OrderLineInput
	FromCart         bool
	ShippingAddress  Address
	PaymentMethod    domain.PaymentMethod
	PaymentReference string
	ShippingFee      *int64
	Discount         int64
	Note             string
}

// OrderLineInput is a requested product quantity.
type OrderLineInput struct {
	ProductID string
	Quantity  int
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID     string
	Status     OrderStatus
	Pagination pagination.Params
}

// UpdateOrderStatusCommand moves an order to Status.
type UpdateOrderStatusCommand struct {
	OrderID string
	Status  OrderStatus
	ActorID string
	Note    string
	Images  []string
}

// CancelOrderCommand is the owner initiated cancellation. An empty UserID skips the
// ownership check.
type CancelOrderCommand struct {
	OrderID string
	UserID  string
	ActorID string
	Reason  string
}

// ConfirmPaymentCommand records a PSP outcome by order id or payment reference.
type ConfirmPaymentCommand struct {
	OrderID          string
	PaymentReference string
	Status           domain.PaymentStatus
	PaidAt           *time.Time
}

// RefundOrderCommand marks a cancelled paid order as refunded.
type RefundOrderCommand struct {
	OrderID string
	ActorID string
	Reason  string
}

// CreateBookingCommand reserves a tour for a group.
type CreateBookingCommand struct {
	UserID         string
	TourID         string
	TourName       string
	StartDate      time.Time
	EndDate        time.Time
	TotalSeats     int
	AvailableSeats int
	Customers      []BookingCustomer
	Note           string
}

// BookingListFilter narrows booking listings.
type BookingListFilter struct {
	UserID     string
	Status     BookingStatus
	Pagination pagination.Params
}

// UpdateBookingStatusCommand moves a booking to Status.
type UpdateBookingStatusCommand struct {
	BookingID string
	Status    BookingStatus
	ActorID   string
	Note      string
}

// CancelBookingCommand cancels a booking. An empty UserID skips the ownership check.
type CancelBookingCommand struct {
	BookingID string
	UserID    string
	ActorID   string
	Reason    string
}

// NotifyCommand describes one notification. When Template is set, Title and Message are
// rendered from it in Locale with Args.
type NotifyCommand struct {
	UserID    string
	Type      NotificationType
	Template  string
	Args      []any
	Locale    string
	Title     string
	Message   string
	OrderID   string
	BookingID string
	ProductID string
	Data      map[string]any
}

// NotificationListFilter narrows notification listings.
type NotificationListFilter struct {
	UserID     string
	UnreadOnly bool
	Pagination pagination.Params
}

// CartItemCommand adds or updates a cart line.
type CartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

// SendMessageCommand sends Body from one user to another.
type SendMessageCommand struct {
	FromUserID string
	ToUserID   string
	Body       string
}

func normalizePage(params pagination.Params) pagination.Params {
	return params.Normalize(pagination.DefaultMaxLimit)
}
