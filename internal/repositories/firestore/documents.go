package firestore

import (
	"maps"
	"slices"
	"time"

	domain "github.com/campverse/api/internal/domain"
)

type productDocument struct {
	Name      string    `firestore:"name"`
	Price     int64     `firestore:"price"`
	Currency  string    `firestore:"currency,omitempty"`
	Stock     int       `firestore:"stock"`
	Active    bool      `firestore:"active"`
	Images    []string  `firestore:"images,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newProductDocument(p domain.Product) productDocument {
	return productDocument{
		Name:      p.Name,
		Price:     p.Price,
		Currency:  p.Currency,
		Stock:     p.Stock,
		Active:    p.Active,
		Images:    slices.Clone(p.Images),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:        id,
		Name:      d.Name,
		Price:     d.Price,
		Currency:  d.Currency,
		Stock:     d.Stock,
		Active:    d.Active,
		Images:    slices.Clone(d.Images),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type historyDocument struct {
	Status string    `firestore:"status"`
	Date   time.Time `firestore:"date"`
	Note   string    `firestore:"note,omitempty"`
	Images []string  `firestore:"images,omitempty"`
	Actor  string    `firestore:"actor,omitempty"`
}

func newHistoryDocuments(history []domain.HistoryEntry) []historyDocument {
	out := make([]historyDocument, 0, len(history))
	for _, entry := range history {
		out = append(out, historyDocument{
			Status: entry.Status,
			Date:   entry.Date.UTC(),
			Note:   entry.Note,
			Images: slices.Clone(entry.Images),
			Actor:  entry.Actor,
		})
	}
	return out
}

func historyToDomain(docs []historyDocument) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.HistoryEntry{
			Status: doc.Status,
			Date:   doc.Date,
			Note:   doc.Note,
			Images: slices.Clone(doc.Images),
			Actor:  doc.Actor,
		})
	}
	return out
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	UnitPrice int64  `firestore:"unitPrice"`
	Quantity  int    `firestore:"quantity"`
	LineTotal int64  `firestore:"lineTotal"`
}

type addressDocument struct {
	Recipient  string `firestore:"recipient"`
	Phone      string `firestore:"phone"`
	Line1      string `firestore:"line1"`
	Line2      string `firestore:"line2,omitempty"`
	Ward       string `firestore:"ward,omitempty"`
	District   string `firestore:"district,omitempty"`
	City       string `firestore:"city"`
	Country    string `firestore:"country,omitempty"`
	PostalCode string `firestore:"postalCode,omitempty"`
}

type totalsDocument struct {
	ItemsTotal  int64 `firestore:"itemsTotal"`
	ShippingFee int64 `firestore:"shippingFee"`
	Tax         int64 `firestore:"tax"`
	Discount    int64 `firestore:"discount"`
	GrandTotal  int64 `firestore:"grandTotal"`
}

type orderDocument struct {
	OrderNumber      string              `firestore:"orderNumber"`
	UserID           string              `firestore:"userId"`
	Items            []orderItemDocument `firestore:"items"`
	ShippingAddress  addressDocument     `firestore:"shippingAddress"`
	PaymentMethod    string              `firestore:"paymentMethod"`
	PaymentStatus    string              `firestore:"paymentStatus"`
	PaymentReference string              `firestore:"paymentReference,omitempty"`
	Status           string              `firestore:"status"`
	Totals           totalsDocument      `firestore:"totals"`
	Currency         string              `firestore:"currency,omitempty"`
	History          []historyDocument   `firestore:"history"`
	Note             string              `firestore:"note,omitempty"`
	Locale           string              `firestore:"locale,omitempty"`
	CreatedAt        time.Time           `firestore:"createdAt"`
	UpdatedAt        time.Time           `firestore:"updatedAt"`
	PaidAt           *time.Time          `firestore:"paidAt,omitempty"`
	CancelledAt      *time.Time          `firestore:"cancelledAt,omitempty"`
}

func newOrderDocument(o domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemDocument(item))
	}
	return orderDocument{
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Items:            items,
		ShippingAddress:  addressDocument(o.ShippingAddress),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentReference: o.PaymentReference,
		Status:           string(o.Status),
		Totals:           totalsDocument(o.Totals),
		Currency:         o.Currency,
		History:          newHistoryDocuments(o.History),
		Note:             o.Note,
		Locale:           o.Locale,
		CreatedAt:        o.CreatedAt.UTC(),
		UpdatedAt:        o.UpdatedAt.UTC(),
		PaidAt:           utcPtr(o.PaidAt),
		CancelledAt:      utcPtr(o.CancelledAt),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem(item))
	}
	return domain.Order{
		ID:               id,
		OrderNumber:      d.OrderNumber,
		UserID:           d.UserID,
		Items:            items,
		ShippingAddress:  domain.Address(d.ShippingAddress),
		PaymentMethod:    domain.PaymentMethod(d.PaymentMethod),
		PaymentStatus:    domain.PaymentStatus(d.PaymentStatus),
		PaymentReference: d.PaymentReference,
		Status:           domain.OrderStatus(d.Status),
		Totals:           domain.OrderTotals(d.Totals),
		Currency:         d.Currency,
		History:          historyToDomain(d.History),
		Note:             d.Note,
		Locale:           d.Locale,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		PaidAt:           d.PaidAt,
		CancelledAt:      d.CancelledAt,
	}
}

type customerDocument struct {
	FullName       string `firestore:"fullName"`
	Phone          string `firestore:"phone,omitempty"`
	Email          string `firestore:"email,omitempty"`
	Representative bool   `firestore:"representative"`
	TotalAdults    int    `firestore:"totalAdults"`
	TotalChildren  int    `firestore:"totalChildren"`
	TotalBabies    int    `firestore:"totalBabies"`
	TotalPeople    int    `firestore:"totalPeople"`
}

type bookingDocument struct {
	Code           string             `firestore:"code"`
	UserID         string             `firestore:"userId"`
	TourID         string             `firestore:"tourId"`
	TourName       string             `firestore:"tourName"`
	StartDate      time.Time          `firestore:"startDate"`
	EndDate        time.Time          `firestore:"endDate"`
	TotalSeats     int                `firestore:"totalSeats"`
	AvailableSeats int                `firestore:"availableSeats"`
	Customers      []customerDocument `firestore:"customers"`
	Status         string             `firestore:"status"`
	Note           string             `firestore:"note,omitempty"`
	Locale         string             `firestore:"locale,omitempty"`
	History        []historyDocument  `firestore:"history"`
	CreatedAt      time.Time          `firestore:"createdAt"`
	UpdatedAt      time.Time          `firestore:"updatedAt"`
	CancelledAt    *time.Time         `firestore:"cancelledAt,omitempty"`
	CancelReason   string             `firestore:"cancelReason,omitempty"`
}

func newBookingDocument(b domain.Booking) bookingDocument {
	customers := make([]customerDocument, 0, len(b.Customers))
	for _, customer := range b.Customers {
		customers = append(customers, customerDocument(customer))
	}
	return bookingDocument{
		Code:           b.Code,
		UserID:         b.UserID,
		TourID:         b.TourID,
		TourName:       b.TourName,
		StartDate:      b.StartDate.UTC(),
		EndDate:        b.EndDate.UTC(),
		TotalSeats:     b.TotalSeats,
		AvailableSeats: b.AvailableSeats,
		Customers:      customers,
		Status:         string(b.Status),
		Note:           b.Note,
		Locale:         b.Locale,
		History:        newHistoryDocuments(b.History),
		CreatedAt:      b.CreatedAt.UTC(),
		UpdatedAt:      b.UpdatedAt.UTC(),
		CancelledAt:    utcPtr(b.CancelledAt),
		CancelReason:   b.CancelReason,
	}
}

func (d bookingDocument) toDomain(id string) domain.Booking {
	customers := make([]domain.BookingCustomer, 0, len(d.Customers))
	for _, customer := range d.Customers {
		customers = append(customers, domain.BookingCustomer(customer))
	}
	return domain.Booking{
		ID:             id,
		Code:           d.Code,
		UserID:         d.UserID,
		TourID:         d.TourID,
		TourName:       d.TourName,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		TotalSeats:     d.TotalSeats,
		AvailableSeats: d.AvailableSeats,
		Customers:      customers,
		Status:         domain.BookingStatus(d.Status),
		Note:           d.Note,
		Locale:         d.Locale,
		History:        historyToDomain(d.History),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		CancelledAt:    d.CancelledAt,
		CancelReason:   d.CancelReason,
	}
}

type bookingCodeDocument struct {
	BookingID string    `firestore:"bookingId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type cartItemDocument struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
}

type cartDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type notificationDocument struct {
	UserID    string         `firestore:"userId"`
	Type      string         `firestore:"type"`
	Title     string         `firestore:"title"`
	Message   string         `firestore:"message"`
	Read      bool           `firestore:"read"`
	ReadAt    *time.Time     `firestore:"readAt,omitempty"`
	OrderID   string         `firestore:"orderId,omitempty"`
	BookingID string         `firestore:"bookingId,omitempty"`
	ProductID string         `firestore:"productId,omitempty"`
	Data      map[string]any `firestore:"data,omitempty"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

func newNotificationDocument(n domain.Notification) notificationDocument {
	return notificationDocument{
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    utcPtr(n.ReadAt),
		OrderID:   n.OrderID,
		BookingID: n.BookingID,
		ProductID: n.ProductID,
		Data:      maps.Clone(n.Data),
		CreatedAt: n.CreatedAt.UTC(),
	}
}

func (d notificationDocument) toDomain(id string) domain.Notification {
	return domain.Notification{
		ID:        id,
		UserID:    d.UserID,
		Type:      domain.NotificationType(d.Type),
		Title:     d.Title,
		Message:   d.Message,
		Read:      d.Read,
		ReadAt:    d.ReadAt,
		OrderID:   d.OrderID,
		BookingID: d.BookingID,
		ProductID: d.ProductID,
		Data:      maps.Clone(d.Data),
		CreatedAt: d.CreatedAt,
	}
}

type messageDocument struct {
	ConversationKey string    `firestore:"conversationKey"`
	FromUserID      string    `firestore:"fromUserId"`
	ToUserID        string    `firestore:"toUserId"`
	Body            string    `firestore:"body"`
	CreatedAt       time.Time `firestore:"createdAt"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
