package handlers

import (
	"time"

	"github.com/campverse/api/internal/services"
)

type productPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency,omitempty"`
	Stock     int       `json:"stock"`
	Images    []string  `json:"images,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newProductPayload(p services.Product) productPayload {
	return productPayload{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Currency:  p.Currency,
		Stock:     p.Stock,
		Images:    p.Images,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type cartItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartPayload struct {
	UserID    string            `json:"userId"`
	Items     []cartItemPayload `json:"items"`
	Quantity  int               `json:"quantity"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
}

func newCartPayload(cart services.Cart) cartPayload {
	items := make([]cartItemPayload, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemPayload{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	payload := cartPayload{UserID: cart.UserID, Items: items, Quantity: cart.Quantity()}
	if !cart.UpdatedAt.IsZero() {
		updated := cart.UpdatedAt
		payload.UpdatedAt = &updated
	}
	return payload
}

type addressPayload struct {
	Recipient  string `json:"recipient"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	Ward       string `json:"ward,omitempty"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

func (a addressPayload) toAddress() services.Address {
	return services.Address{
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		Ward:       a.Ward,
		District:   a.District,
		City:       a.City,
		Country:    a.Country,
		PostalCode: a.PostalCode,
	}
}

func newAddressPayload(a services.Address) addressPayload {
	return addressPayload{
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		Ward:       a.Ward,
		District:   a.District,
		City:       a.City,
		Country:    a.Country,
		PostalCode: a.PostalCode,
	}
}

type historyPayload struct {
	Status string    `json:"status"`
	Date   time.Time `json:"date"`
	Note   string    `json:"note,omitempty"`
	Images []string  `json:"images,omitempty"`
}

type orderItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

type orderPayload struct {
	ID               string             `json:"id"`
	OrderNumber      string             `json:"orderNumber"`
	UserID           string             `json:"userId"`
	Items            []orderItemPayload `json:"items"`
	ShippingAddress  addressPayload     `json:"shippingAddress"`
	PaymentMethod    string             `json:"paymentMethod"`
	PaymentStatus    string             `json:"paymentStatus"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	Status           string             `json:"status"`
	ItemsTotal       int64              `json:"itemsTotal"`
	ShippingFee      int64              `json:"shippingFee"`
	Tax              int64              `json:"tax"`
	Discount         int64              `json:"discount"`
	GrandTotal       int64              `json:"grandTotal"`
	Currency         string             `json:"currency"`
	Note             string             `json:"note,omitempty"`
	History          []historyPayload   `json:"history"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
	PaidAt           *time.Time         `json:"paidAt,omitempty"`
	CancelledAt      *time.Time         `json:"cancelledAt,omitempty"`
}

func newOrderPayload(o services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal,
		})
	}
	history := make([]historyPayload, 0, len(o.History))
	for _, entry := range o.History {
		history = append(history, historyPayload{Status: entry.Status, Date: entry.Date, Note: entry.Note, Images: entry.Images})
	}
	return orderPayload{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Items:            items,
		ShippingAddress:  newAddressPayload(o.ShippingAddress),
		PaymentMethod:    string(o.PaymentMethod),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentReference: o.PaymentReference,
		Status:           string(o.Status),
		ItemsTotal:       o.Totals.ItemsTotal,
		ShippingFee:      o.Totals.ShippingFee,
		Tax:              o.Totals.Tax,
		Discount:         o.Totals.Discount,
		GrandTotal:       o.Totals.GrandTotal,
		Currency:         o.Currency,
		Note:             o.Note,
		History:          history,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		PaidAt:           o.PaidAt,
		CancelledAt:      o.CancelledAt,
	}
}

type bookingCustomerPayload struct {
	FullName       string `json:"fullName"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Representative bool   `json:"representative"`
	TotalAdults    int    `json:"totalAdults"`
	TotalChildren  int    `json:"totalChildren"`
	TotalBabies    int    `json:"totalBabies"`
	TotalPeople    int    `json:"totalPeople"`
}

func (c bookingCustomerPayload) toCustomer() services.BookingCustomer {
	return services.BookingCustomer{
		FullName:       c.FullName,
		Phone:          c.Phone,
		Email:          c.Email,
		Representative: c.Representative,
		TotalAdults:    c.TotalAdults,
		TotalChildren:  c.TotalChildren,
		TotalBabies:    c.TotalBabies,
	}
}

type bookingPayload struct {
	ID             string                   `json:"id"`
	Code           string                   `json:"code"`
	UserID         string                   `json:"userId"`
	TourID         string                   `json:"tourId"`
	TourName       string                   `json:"tourName"`
	StartDate      time.Time                `json:"startDate"`
	EndDate        time.Time                `json:"endDate"`
	TotalSeats     int                      `json:"totalSeats"`
	AvailableSeats int                      `json:"availableSeats"`
	TotalPeople    int                      `json:"totalPeople"`
	Customers      []bookingCustomerPayload `json:"customers"`
	Status         string                   `json:"status"`
	Note           string                   `json:"note,omitempty"`
	History        []historyPayload         `json:"history"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
	CancelledAt    *time.Time               `json:"cancelledAt,omitempty"`
	CancelReason   string                   `json:"cancelReason,omitempty"`
}

func newBookingPayload(b services.Booking) bookingPayload {
	customers := make([]bookingCustomerPayload, 0, len(b.Customers))
	for _, c := range b.Customers {
		customers = append(customers, bookingCustomerPayload{
			FullName:       c.FullName,
			Phone:          c.Phone,
			Email:          c.Email,
			Representative: c.Representative,
			TotalAdults:    c.TotalAdults,
			TotalChildren:  c.TotalChildren,
			TotalBabies:    c.TotalBabies,
			TotalPeople:    c.TotalPeople,
		})
	}
	history := make([]historyPayload, 0, len(b.History))
	for _, entry := range b.History {
		history = append(history, historyPayload{Status: entry.Status, Date: entry.Date, Note: entry.Note})
	}
	return bookingPayload{
		ID:             b.ID,
		Code:           b.Code,
		UserID:         b.UserID,
		TourID:         b.TourID,
		TourName:       b.TourName,
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		TotalSeats:     b.TotalSeats,
		AvailableSeats: b.AvailableSeats,
		TotalPeople:    b.TotalPeople(),
		Customers:      customers,
		Status:         string(b.Status),
		Note:           b.Note,
		History:        history,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		CancelledAt:    b.CancelledAt,
		CancelReason:   b.CancelReason,
	}
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
