package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/services"
)

const maxBookingBodySize = 32 * 1024

type createBookingRequest struct {
	TourID         string                   `json:"tourId"`
	TourName       string                   `json:"tourName"`
	StartDate      time.Time                `json:"startDate"`
	EndDate        time.Time                `json:"endDate"`
	TotalSeats     int                      `json:"totalSeats"`
	AvailableSeats int                      `json:"availableSeats"`
	Customers      []bookingCustomerPayload `json:"customers"`
	Note           string                   `json:"note"`
}

// BookingHandlers exposes tour bookings for authenticated users.
type BookingHandlers struct {
	authn    *auth.Authenticator
	bookings services.BookingService
	opts     handlerOptions
}

// NewBookingHandlers constructs BookingHandlers.
func NewBookingHandlers(authn *auth.Authenticator, bookings services.BookingService, opts ...HandlerOption) *BookingHandlers {
	return &BookingHandlers{authn: authn, bookings: bookings, opts: collectHandlerOptions(opts)}
}

// Routes registers the /bookings endpoints.
func (h *BookingHandlers) Routes(r chi.Router) {
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.With(h.opts.create...).Post("/", h.createBooking)
	r.Get("/", h.listBookings)
	r.Get("/code/{code}", h.getBookingByCode)
	r.Get("/{bookingID}", h.getBooking)
	r.Post("/{bookingID}/cancel", h.cancelBooking)
}

func (h *BookingHandlers) createBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req createBookingRequest
	if !decodeJSONBody(w, r, maxBookingBodySize, &req) {
		return
	}
	booking, err := h.bookings.CreateBooking(r.Context(), services.CreateBookingCommand{
		UserID:         identity.UID,
		TourID:         req.TourID,
		TourName:       req.TourName,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.AvailableSeats,
		Customers:      mapSlice(req.Customers, bookingCustomerPayload.toCustomer),
		Note:           req.Note,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "booking created", newBookingPayload(booking))
}

func (h *BookingHandlers) listBookings(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	params, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := h.bookings.ListBookings(r.Context(), services.BookingListFilter{
		UserID:     identity.UID,
		Status:     domain.BookingStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Pagination: params,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WritePaginated(w, "bookings retrieved", mapSlice(page.Items, newBookingPayload), pagination.NewMeta(params, page.Total))
}

func (h *BookingHandlers) getBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	booking, err := h.bookings.GetBooking(r.Context(), chi.URLParam(r, "bookingID"))
	h.writeOwnedBooking(w, r, identity, booking, err)
}

func (h *BookingHandlers) getBookingByCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	booking, err := h.bookings.GetBookingByCode(r.Context(), chi.URLParam(r, "code"))
	h.writeOwnedBooking(w, r, identity, booking, err)
}

func (h *BookingHandlers) writeOwnedBooking(w http.ResponseWriter, r *http.Request, identity *auth.Identity, booking services.Booking, err error) {
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	if !identity.CanAccess(booking.UserID) {
		writeServiceError(r.Context(), w, services.ErrBookingNotFound)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "booking retrieved", newBookingPayload(booking))
}

func (h *BookingHandlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 && !decodeJSONBody(w, r, maxOrderCancelBodySize, &req) {
		return
	}
	booking, err := h.bookings.CancelBooking(r.Context(), services.CancelBookingCommand{
		BookingID: chi.URLParam(r, "bookingID"),
		UserID:    identity.UID,
		ActorID:   identity.UID,
		Reason:    req.Reason,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "booking cancelled", newBookingPayload(booking))
}
