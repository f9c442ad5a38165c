package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories/memory"
	"github.com/campverse/api/internal/services"
)

func newCartFixture(t *testing.T) chi.Router {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "tent-2p", Name: "Two person tent", Price: 1_200_000, Stock: 5, Active: true}))
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "retired", Name: "Old stove", Price: 300_000, Stock: 1}))

	carts, err := services.NewCartService(services.CartServiceDeps{Repository: store.Carts(), Products: store.Products()})
	require.NoError(t, err)
	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{Products: store.Products()})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/cart", NewCartHandlers(nil, carts).Routes)
	r.Route("/products", NewProductHandlers(catalog).Routes)
	return r
}

func TestCartHandlers_AddMergesLines(t *testing.T) {
	router := newCartFixture(t)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := asUser(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"tent-2p","quantity":2}`)), "user-1")
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/cart", nil), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code)

	var cart cartPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &cart))
	require.Len(t, cart.Items, 1)
	require.Equal(t, 4, cart.Items[0].Quantity)
}

func TestCartHandlers_InactiveProductIsNotFound(t *testing.T) {
	router := newCartFixture(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"retired","quantity":1}`)), "user-1"))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "product_not_found", decodeEnvelope(t, rr).Code)
}

func TestCartHandlers_UpdateToZeroRemovesLine(t *testing.T) {
	router := newCartFixture(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"productId":"tent-2p","quantity":1}`)), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodPatch, "/cart/items/tent-2p", strings.NewReader(`{"quantity":0}`)), "user-1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var cart cartPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &cart))
	require.Empty(t, cart.Items)
}

func TestProductHandlers_HidesInactiveProducts(t *testing.T) {
	router := newCartFixture(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var items []productPayload
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &items))
	require.Len(t, items, 1)
	require.Equal(t, "tent-2p", items[0].ID)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/retired", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
