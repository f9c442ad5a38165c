package domain

import "time"

// BookingStatus enumerates the tour booking lifecycle.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
}

// IsValid reports whether the status is part of the lifecycle.
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, candidate := range bookingTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Booking is a tour reservation made by a representative for a group of customers.
type Booking struct {
	ID             string
	Code           string
	UserID         string
	TourID         string
	TourName       string
	StartDate      time.Time
	EndDate        time.Time
	TotalSeats     int
	AvailableSeats int
	Customers      []BookingCustomer
	Status         BookingStatus
	Note           string
	Locale         string
	History        []HistoryEntry
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CancelledAt    *time.Time
	CancelReason   string
}

// BookingCustomer describes the representative or an accompanying member.
type BookingCustomer struct {
	FullName       string
	Phone          string
	Email          string
	Representative bool
	TotalAdults    int
	TotalChildren  int
	TotalBabies    int
	TotalPeople    int
}

// Headcount returns the sum of adults, children and babies.
func (c BookingCustomer) Headcount() int {
	return c.TotalAdults + c.TotalChildren + c.TotalBabies
}

// TotalPeople sums the headcount of every customer record.
func (b Booking) TotalPeople() int {
	total := 0
	for _, customer := range b.Customers {
		total += customer.Headcount()
	}
	return total
}
