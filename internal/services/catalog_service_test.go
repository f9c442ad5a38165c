package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/repositories/memory"
)

func TestCatalogService_HidesInactiveProducts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "tent", Name: "Tent", Active: true}))
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "stove", Name: "Stove", Active: true}))
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "retired", Name: "Retired"}))

	svc, err := NewCatalogService(CatalogServiceDeps{Products: store.Products()})
	require.NoError(t, err)

	page, err := svc.ListProducts(ctx, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	product, err := svc.GetProduct(ctx, "tent")
	require.NoError(t, err)
	assert.Equal(t, "Tent", product.Name)

	_, err = svc.GetProduct(ctx, "retired")
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.GetProduct(ctx, "ghost")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
