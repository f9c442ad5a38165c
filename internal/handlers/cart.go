package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/services"
)

const maxCartBodySize = 4 * 1024

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartHandlers exposes the authenticated user's cart.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs CartHandlers.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, carts: carts}
}

// Routes registers the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(r.Context(), identity.UID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "cart retrieved", newCartPayload(cart))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	cart, err := h.carts.AddItem(r.Context(), services.CartItemCommand{UserID: identity.UID, ProductID: req.ProductID, Quantity: req.Quantity})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "item added to cart", newCartPayload(cart))
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if !decodeJSONBody(w, r, maxCartBodySize, &req) {
		return
	}
	cart, err := h.carts.UpdateItem(r.Context(), services.CartItemCommand{
		UserID:    identity.UID,
		ProductID: chi.URLParam(r, "productID"),
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "cart updated", newCartPayload(cart))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(r.Context(), identity.UID, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "item removed from cart", newCartPayload(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), identity.UID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "cart cleared", nil)
}
