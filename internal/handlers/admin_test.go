package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/services"
)

func newAdminRouter(orders services.OrderService, bookings services.BookingService) chi.Router {
	r := chi.NewRouter()
	r.Route("/admin", NewAdminHandlers(nil, orders, bookings).Routes)
	return r
}

func TestAdminHandlers_UpdateOrderStatus(t *testing.T) {
	orders := &stubOrderService{orders: map[string]services.Order{
		"ord_1": {ID: "ord_1", UserID: "user-1", Status: domain.OrderStatusConfirmed},
	}}
	router := newAdminRouter(orders, &stubBookingService{})

	body := `{"status":"shipping","note":"handed to carrier","images":["https://cdn.example.com/parcel.jpg"]}`
	req := asUser(httptest.NewRequest(http.MethodPatch, "/admin/orders/ord_1/status", strings.NewReader(body)), "staff", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	cmd := orders.statusUpdates[0]
	if cmd.Status != domain.OrderStatusShipping || cmd.ActorID != "staff" || len(cmd.Images) != 1 {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

func TestAdminHandlers_UpdateOrderStatusInvalidTransition(t *testing.T) {
	orders := &stubOrderService{orders: map[string]services.Order{
		"ord_1": {ID: "ord_1", Status: domain.OrderStatusCompleted},
	}}
	router := newAdminRouter(orders, &stubBookingService{})

	req := asUser(httptest.NewRequest(http.MethodPatch, "/admin/orders/ord_1/status", strings.NewReader(`{"status":"pending"}`)), "staff", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %q", env.Code)
	}
}

func TestAdminHandlers_RefundOrder(t *testing.T) {
	orders := &stubOrderService{orders: map[string]services.Order{
		"ord_paid":   {ID: "ord_paid", Status: domain.OrderStatusCancelled, PaymentStatus: domain.PaymentStatusPaid},
		"ord_unpaid": {ID: "ord_unpaid", Status: domain.OrderStatusCancelled, PaymentStatus: domain.PaymentStatusPending},
	}}
	router := newAdminRouter(orders, &stubBookingService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/admin/orders/ord_paid/refund", strings.NewReader(`{"reason":"customer request"}`)), "staff", auth.RoleAdmin))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if orders.refunds[0].Reason != "customer request" {
		t.Fatalf("expected reason to be forwarded, got %+v", orders.refunds[0])
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/admin/orders/ord_unpaid/refund", nil), "staff", auth.RoleAdmin))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Code != "refund_not_allowed" {
		t.Fatalf("expected refund_not_allowed, got %q", env.Code)
	}
}

func TestAdminHandlers_ConfirmBooking(t *testing.T) {
	bookings := &stubBookingService{bookings: map[string]services.Booking{
		"bk_1": {ID: "bk_1", Status: domain.BookingStatusPending},
	}}
	router := newAdminRouter(&stubOrderService{}, bookings)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/admin/bookings/bk_1/confirm", nil), "staff", auth.RoleAdmin))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if bookings.updates[0].Status != domain.BookingStatusConfirmed || bookings.updates[0].ActorID != "staff" {
		t.Fatalf("unexpected update %+v", bookings.updates[0])
	}
}

func TestAdminHandlers_UpdateBookingStatusMissing(t *testing.T) {
	router := newAdminRouter(&stubOrderService{}, &stubBookingService{})

	req := asUser(httptest.NewRequest(http.MethodPatch, "/admin/bookings/missing/status", strings.NewReader(`{"status":"completed"}`)), "staff", auth.RoleAdmin)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
