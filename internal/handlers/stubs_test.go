package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/payments"
	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/services"
)

type stubOrderService struct {
	orders         map[string]services.Order
	createErr      error
	created        []services.CreateOrderCommand
	statusUpdates  []services.UpdateOrderStatusCommand
	cancels        []services.CancelOrderCommand
	confirmations  []services.ConfirmPaymentCommand
	refunds        []services.RefundOrderCommand
	lastListFilter services.OrderListFilter
	confirmErr     error
}

func (s *stubOrderService) CreateOrder(_ context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	s.created = append(s.created, cmd)
	if s.createErr != nil {
		return services.Order{}, s.createErr
	}
	return services.Order{
		ID:            "ord_1",
		UserID:        cmd.UserID,
		Status:        domain.OrderStatusPending,
		PaymentMethod: cmd.PaymentMethod,
		PaymentStatus: domain.PaymentStatusPending,
	}, nil
}

func (s *stubOrderService) GetOrder(_ context.Context, orderID string) (services.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return services.Order{}, services.ErrOrderNotFound
	}
	return order, nil
}

func (s *stubOrderService) ListOrders(_ context.Context, filter services.OrderListFilter) (domain.Page[services.Order], error) {
	s.lastListFilter = filter
	var items []services.Order
	for _, order := range s.orders {
		if filter.UserID == "" || order.UserID == filter.UserID {
			items = append(items, order)
		}
	}
	return domain.Page[services.Order]{Items: items, Total: int64(len(items))}, nil
}

func (s *stubOrderService) UpdateStatus(_ context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
	s.statusUpdates = append(s.statusUpdates, cmd)
	order, ok := s.orders[cmd.OrderID]
	if !ok {
		return services.Order{}, services.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(cmd.Status) {
		return services.Order{}, services.ErrOrderInvalidTransition
	}
	order.Status = cmd.Status
	return order, nil
}

func (s *stubOrderService) CancelOrder(_ context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	s.cancels = append(s.cancels, cmd)
	order, ok := s.orders[cmd.OrderID]
	if !ok || order.UserID != cmd.UserID {
		return services.Order{}, services.ErrOrderNotFound
	}
	if order.Status == domain.OrderStatusPending {
		order.Status = domain.OrderStatusCancelled
	} else {
		order.Status = domain.OrderStatusCancelRequest
	}
	return order, nil
}

func (s *stubOrderService) ConfirmPayment(_ context.Context, cmd services.ConfirmPaymentCommand) (services.Order, error) {
	s.confirmations = append(s.confirmations, cmd)
	if s.confirmErr != nil {
		return services.Order{}, s.confirmErr
	}
	order := s.orders[cmd.OrderID]
	order.PaymentStatus = cmd.Status
	return order, nil
}

func (s *stubOrderService) RefundOrder(_ context.Context, cmd services.RefundOrderCommand) (services.Order, error) {
	s.refunds = append(s.refunds, cmd)
	order, ok := s.orders[cmd.OrderID]
	if !ok {
		return services.Order{}, services.ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusCancelled || order.PaymentStatus != domain.PaymentStatusPaid {
		return services.Order{}, services.ErrOrderRefundNotAllowed
	}
	order.PaymentStatus = domain.PaymentStatusRefunded
	return order, nil
}

type stubBookingService struct {
	bookings  map[string]services.Booking
	createErr error
	created   []services.CreateBookingCommand
	updates   []services.UpdateBookingStatusCommand
	cancels   []services.CancelBookingCommand
}

func (s *stubBookingService) CreateBooking(_ context.Context, cmd services.CreateBookingCommand) (services.Booking, error) {
	s.created = append(s.created, cmd)
	if s.createErr != nil {
		return services.Booking{}, s.createErr
	}
	return services.Booking{ID: "bk_1", Code: "BK12345678", UserID: cmd.UserID, TourID: cmd.TourID, Status: domain.BookingStatusPending}, nil
}

func (s *stubBookingService) GetBooking(_ context.Context, bookingID string) (services.Booking, error) {
	booking, ok := s.bookings[bookingID]
	if !ok {
		return services.Booking{}, services.ErrBookingNotFound
	}
	return booking, nil
}

func (s *stubBookingService) GetBookingByCode(_ context.Context, code string) (services.Booking, error) {
	for _, booking := range s.bookings {
		if booking.Code == code {
			return booking, nil
		}
	}
	return services.Booking{}, services.ErrBookingNotFound
}

func (s *stubBookingService) ListBookings(_ context.Context, filter services.BookingListFilter) (domain.Page[services.Booking], error) {
	var items []services.Booking
	for _, booking := range s.bookings {
		if filter.UserID == "" || booking.UserID == filter.UserID {
			items = append(items, booking)
		}
	}
	return domain.Page[services.Booking]{Items: items, Total: int64(len(items))}, nil
}

func (s *stubBookingService) UpdateStatus(_ context.Context, cmd services.UpdateBookingStatusCommand) (services.Booking, error) {
	s.updates = append(s.updates, cmd)
	booking, ok := s.bookings[cmd.BookingID]
	if !ok {
		return services.Booking{}, services.ErrBookingNotFound
	}
	if !booking.Status.CanTransitionTo(cmd.Status) {
		return services.Booking{}, services.ErrBookingInvalidTransition
	}
	booking.Status = cmd.Status
	return booking, nil
}

func (s *stubBookingService) CancelBooking(_ context.Context, cmd services.CancelBookingCommand) (services.Booking, error) {
	s.cancels = append(s.cancels, cmd)
	booking, ok := s.bookings[cmd.BookingID]
	if !ok || booking.UserID != cmd.UserID {
		return services.Booking{}, services.ErrBookingNotFound
	}
	booking.Status = domain.BookingStatusCancelled
	return booking, nil
}

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

type stubWebhookParser struct {
	details  payments.PaymentDetails
	err      error
	payload  []byte
	received string
}

func (s *stubWebhookParser) ParseWebhook(payload []byte, signature string) (payments.PaymentDetails, error) {
	s.payload = payload
	s.received = signature
	return s.details, s.err
}

type stubSweeper struct {
	result services.SweepResult
	err    error
	calls  int
}

func (s *stubSweeper) RunOnce(context.Context) (services.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	Errors     []string        `json:"errors"`
	Data       json.RawMessage `json:"data"`
	Pagination json.RawMessage `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rr.Body.String())
	}
	return env
}

func asUser(req *http.Request, uid string, roles ...string) *http.Request {
	if len(roles) == 0 {
		roles = []string{auth.RoleUser}
	}
	identity := &auth.Identity{UID: uid, Roles: roles}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

var (
	_ services.OrderService   = (*stubOrderService)(nil)
	_ services.BookingService = (*stubBookingService)(nil)
	_ services.SystemService  = (*stubSystemService)(nil)
	_ payments.WebhookParser  = (*stubWebhookParser)(nil)
	_ SweepRunner             = (*stubSweeper)(nil)
)
