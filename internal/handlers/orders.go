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

const (
	maxOrderBodySize       = 16 * 1024
	maxOrderCancelBodySize = 4 * 1024
)

type createOrderRequest struct {
	Items            []cartItemRequest `json:"items"`
	FromCart         bool              `json:"fromCart"`
	ShippingAddress  addressPayload    `json:"shippingAddress"`
	PaymentMethod    string            `json:"paymentMethod"`
	PaymentReference string            `json:"paymentReference"`
	Note             string            `json:"note"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// OrderHandlers exposes order endpoints for authenticated users.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
	opts   handlerOptions
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...HandlerOption) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
		opts:   collectHandlerOptions(opts),
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.With(h.opts.create...).Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req createOrderRequest
	if !decodeJSONBody(w, r, maxOrderBodySize, &req) {
		return
	}

	items := make([]services.OrderLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.OrderLineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	order, err := h.orders.CreateOrder(r.Context(), services.CreateOrderCommand{
		UserID:           identity.UID,
		Items:            items,
		FromCart:         req.FromCart,
		ShippingAddress:  req.ShippingAddress.toAddress(),
		PaymentMethod:    domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		PaymentReference: req.PaymentReference,
		Note:             req.Note,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "order created", newOrderPayload(order))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	params, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := h.orders.ListOrders(r.Context(), services.OrderListFilter{
		UserID:     identity.UID,
		Status:     domain.OrderStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Pagination: params,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WritePaginated(w, "orders retrieved", mapSlice(page.Items, newOrderPayload), pagination.NewMeta(params, page.Total))
}

// getOrder reports foreign orders as missing so ids cannot be probed.
func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	if !identity.CanAccess(order.UserID) {
		writeServiceError(r.Context(), w, services.ErrOrderNotFound)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "order retrieved", newOrderPayload(order))
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 && !decodeJSONBody(w, r, maxOrderCancelBodySize, &req) {
		return
	}
	order, err := h.orders.CancelOrder(r.Context(), services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
		ActorID: identity.UID,
		Reason:  req.Reason,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	message := "order cancelled"
	if order.Status == domain.OrderStatusCancelRequest {
		message = "cancellation requested"
	}
	httpx.WriteSuccess(w, http.StatusOK, message, newOrderPayload(order))
}
