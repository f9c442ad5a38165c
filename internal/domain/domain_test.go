package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusShipping, false},
		{OrderStatusShipping, OrderStatusDelivered, true},
		{OrderStatusShipping, OrderStatusCancelRequest, true},
		{OrderStatusCancelRequest, OrderStatusShipping, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusProcessing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
	if !OrderStatusCancelled.IsTerminal() || !OrderStatusCompleted.IsTerminal() || OrderStatusDelivered.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
	if OrderStatus("lost").IsValid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}

func TestBookingStatusTransitions(t *testing.T) {
	if !BookingStatusPending.CanTransitionTo(BookingStatusConfirmed) {
		t.Fatalf("expected pending -> confirmed")
	}
	if BookingStatusPending.CanTransitionTo(BookingStatusCompleted) {
		t.Fatalf("expected pending -> completed to be rejected")
	}
	if BookingStatusCancelled.CanTransitionTo(BookingStatusConfirmed) {
		t.Fatalf("expected cancelled to be terminal")
	}
}

func TestComputeTotals(t *testing.T) {
	items := []OrderItem{
		{ProductID: "tent", UnitPrice: 1250, Quantity: 2, LineTotal: 2500},
		{ProductID: "lamp", UnitPrice: 333, Quantity: 1, LineTotal: 333},
	}
	totals := ComputeTotals(items, 500, 100, decimal.RequireFromString("0.1"))
	if totals.ItemsTotal != 2833 {
		t.Fatalf("expected items total 2833, got %d", totals.ItemsTotal)
	}
	// 283.3 rounds to 283
	if totals.Tax != 283 {
		t.Fatalf("expected tax 283, got %d", totals.Tax)
	}
	if !totals.Balanced() || totals.GrandTotal != 2833+500+283-100 {
		t.Fatalf("unbalanced totals %#v", totals)
	}

	half := ComputeTotals([]OrderItem{{LineTotal: 5}}, 0, 0, decimal.RequireFromString("0.1"))
	if half.Tax != 1 {
		t.Fatalf("expected half-up rounding to 1, got %d", half.Tax)
	}

	capped := ComputeTotals([]OrderItem{{LineTotal: 100}}, 0, 1_000, decimal.Zero)
	if capped.GrandTotal != 0 || capped.Discount != 100 || !capped.Balanced() {
		t.Fatalf("expected discount capped at total, got %#v", capped)
	}
}

func TestOrderExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	order := Order{
		PaymentMethod: PaymentMethodCOD,
		PaymentStatus: PaymentStatusPending,
		Status:        OrderStatusPending,
		CreatedAt:     now.Add(-16 * time.Minute),
	}
	if !order.Expired(now, 15*time.Minute) {
		t.Fatalf("expected order to be expired")
	}
	order.CreatedAt = now.Add(-14 * time.Minute)
	if order.Expired(now, 15*time.Minute) {
		t.Fatalf("expected fresh order to be kept")
	}
	order.CreatedAt = now.Add(-time.Hour)
	order.PaymentMethod = PaymentMethodCard
	if order.Expired(now, 15*time.Minute) {
		t.Fatalf("expected card order to be kept")
	}
}

func TestBookingTotalPeople(t *testing.T) {
	booking := Booking{Customers: []BookingCustomer{
		{TotalAdults: 2, TotalChildren: 1, TotalBabies: 1},
		{TotalAdults: 1},
	}}
	if booking.TotalPeople() != 5 {
		t.Fatalf("expected 5 people, got %d", booking.TotalPeople())
	}
}

func TestCartQuantitySumsLines(t *testing.T) {
	if got := (Cart{}).Quantity(); got != 0 {
		t.Fatalf("expected empty cart to hold 0 units, got %d", got)
	}
	cart := Cart{Items: []CartItem{{ProductID: "tent", Quantity: 3}, {ProductID: "lamp", Quantity: 2}}}
	if got := cart.Quantity(); got != 5 {
		t.Fatalf("expected 5 units, got %d", got)
	}
}
