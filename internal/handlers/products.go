package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campverse/api/internal/platform/httpx"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/services"
)

// ProductHandlers serves the public product catalog.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs ProductHandlers.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes registers the /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	params, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := h.catalog.ListProducts(r.Context(), params)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WritePaginated(w, "products retrieved", mapSlice(page.Items, newProductPayload), pagination.NewMeta(params, page.Total))
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "product retrieved", newProductPayload(product))
}
