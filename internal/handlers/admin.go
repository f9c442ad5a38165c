package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/services"
)

const maxAdminBodySize = 8 * 1024

type updateStatusRequest struct {
	Status string   `json:"status"`
	Note   string   `json:"note"`
	Images []string `json:"images"`
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// AdminHandlers exposes back-office order and booking operations.
type AdminHandlers struct {
	authn    *auth.Authenticator
	orders   services.OrderService
	bookings services.BookingService
}

// NewAdminHandlers constructs AdminHandlers.
func NewAdminHandlers(authn *auth.Authenticator, orders services.OrderService, bookings services.BookingService) *AdminHandlers {
	return &AdminHandlers{authn: authn, orders: orders, bookings: bookings}
}

// Routes registers the /admin endpoints. Every route requires the admin role.
func (h *AdminHandlers) Routes(r chi.Router) {
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}
	r.Get("/orders", h.listOrders)
	r.Patch("/orders/{orderID}/status", h.updateOrderStatus)
	r.Post("/orders/{orderID}/refund", h.refundOrder)
	r.Get("/bookings", h.listBookings)
	r.Patch("/bookings/{bookingID}/status", h.updateBookingStatus)
	r.Post("/bookings/{bookingID}/confirm", h.confirmBooking)
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	params, ok := pageParams(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.orders.ListOrders(r.Context(), services.OrderListFilter{
		UserID:     strings.TrimSpace(query.Get("userId")),
		Status:     domain.OrderStatus(strings.TrimSpace(query.Get("status"))),
		Pagination: params,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WritePaginated(w, "orders retrieved", mapSlice(page.Items, newOrderPayload), pagination.NewMeta(params, page.Total))
}

func (h *AdminHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeJSONBody(w, r, maxAdminBodySize, &req) {
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), services.UpdateOrderStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  domain.OrderStatus(strings.TrimSpace(req.Status)),
		ActorID: identity.UID,
		Note:    req.Note,
		Images:  req.Images,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "order status updated", newOrderPayload(order))
}

func (h *AdminHandlers) refundOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req refundRequest
	if r.ContentLength != 0 && !decodeJSONBody(w, r, maxAdminBodySize, &req) {
		return
	}
	order, err := h.orders.RefundOrder(r.Context(), services.RefundOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		ActorID: identity.UID,
		Reason:  req.Reason,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "order refunded", newOrderPayload(order))
}

func (h *AdminHandlers) listBookings(w http.ResponseWriter, r *http.Request) {
	params, ok := pageParams(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := h.bookings.ListBookings(r.Context(), services.BookingListFilter{
		UserID:     strings.TrimSpace(query.Get("userId")),
		Status:     domain.BookingStatus(strings.TrimSpace(query.Get("status"))),
		Pagination: params,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WritePaginated(w, "bookings retrieved", mapSlice(page.Items, newBookingPayload), pagination.NewMeta(params, page.Total))
}

func (h *AdminHandlers) updateBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSONBody(w, r, maxAdminBodySize, &req) {
		return
	}
	h.transitionBooking(w, r, domain.BookingStatus(strings.TrimSpace(req.Status)), req.Note)
}

func (h *AdminHandlers) confirmBooking(w http.ResponseWriter, r *http.Request) {
	h.transitionBooking(w, r, domain.BookingStatusConfirmed, "")
}

func (h *AdminHandlers) transitionBooking(w http.ResponseWriter, r *http.Request, status domain.BookingStatus, note string) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	booking, err := h.bookings.UpdateStatus(r.Context(), services.UpdateBookingStatusCommand{
		BookingID: chi.URLParam(r, "bookingID"),
		Status:    status,
		ActorID:   identity.UID,
		Note:      note,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "booking status updated", newBookingPayload(booking))
}
