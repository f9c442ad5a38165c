package domain

import "time"

// OrderStatus enumerates the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusShipping      OrderStatus = "shipping"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusCancelled     OrderStatus = "cancelled"
	OrderStatusCancelRequest OrderStatus = "cancel_request"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:       {OrderStatusProcessing, OrderStatusCancelled, OrderStatusCancelRequest},
	OrderStatusProcessing:    {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusCancelRequest},
	OrderStatusConfirmed:     {OrderStatusShipping, OrderStatusCancelled, OrderStatusCancelRequest},
	OrderStatusShipping:      {OrderStatusDelivered, OrderStatusCancelled, OrderStatusCancelRequest},
	OrderStatusCancelRequest: {OrderStatusCancelled, OrderStatusProcessing, OrderStatusConfirmed, OrderStatusShipping},
	OrderStatusDelivered:     {OrderStatusCompleted},
}

// IsValid reports whether the status is part of the lifecycle.
func (s OrderStatus) IsValid() bool {
	if _, ok := orderTransitions[s]; ok {
		return true
	}
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PaymentMethod enumerates supported payment methods.
type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

// IsValid reports whether the payment method is supported.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodCard
}

// PaymentStatus enumerates payment states tracked on orders.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order is a checkout of catalogue products.
type Order struct {
	ID               string
	OrderNumber      string
	UserID           string
	Items            []OrderItem
	ShippingAddress  Address
	PaymentMethod    PaymentMethod
	PaymentStatus    PaymentStatus
	PaymentReference string
	Status           OrderStatus
	Totals           OrderTotals
	Currency         string
	History          []HistoryEntry
	Note             string
	Locale           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PaidAt           *time.Time
	CancelledAt      *time.Time
}

// OrderItem snapshots a product at the time of purchase.
type OrderItem struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	LineTotal int64
}

// Address is the shipping address snapshot stored on orders.
type Address struct {
	Recipient  string
	Phone      string
	Line1      string
	Line2      string
	Ward       string
	District   string
	City       string
	Country    string
	PostalCode string
}

// Expired reports whether an unpaid cash-on-delivery order has outlived timeout at now.
func (o Order) Expired(now time.Time, timeout time.Duration) bool {
	return o.ExpiredBefore(now.Add(-timeout))
}

// ExpiredBefore reports whether the order is an unpaid cash-on-delivery order created
// before cutoff.
func (o Order) ExpiredBefore(cutoff time.Time) bool {
	return o.PaymentMethod == PaymentMethodCOD &&
		o.PaymentStatus == PaymentStatusPending &&
		o.Status == OrderStatusPending &&
		o.CreatedAt.Before(cutoff)
}
