package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories/memory"
)

func newCartFixture(t *testing.T) CartService {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "tent", Name: "Tent", Price: 150000, Stock: 3, Active: true}))
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "lamp", Name: "Lamp", Price: 45000, Stock: 3, Active: true}))
	require.NoError(t, store.Products().Upsert(ctx, domain.Product{ID: "retired", Name: "Retired", Price: 1, Active: false}))

	svc, err := NewCartService(CartServiceDeps{
		Repository: store.Carts(),
		Products:   store.Products(),
		Clock:      newTestClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)).Now,
	})
	require.NoError(t, err)
	return svc
}

func TestCartService_EmptyCartForNewUser(t *testing.T) {
	svc := newCartFixture(t)

	cart, err := svc.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", cart.UserID)
	assert.Empty(t, cart.Items)
}

func TestCartService_AddItemMergesByProduct(t *testing.T) {
	svc := newCartFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "lamp", Quantity: 2})
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, []domain.CartItem{{ProductID: "tent", Quantity: 3}, {ProductID: "lamp", Quantity: 2}}, cart.Items)
	assert.Equal(t, 5, cart.Quantity())
}

func TestCartService_AddItemChecksProduct(t *testing.T) {
	svc := newCartFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "ghost", Quantity: 1})
	assert.ErrorIs(t, err, ErrCartProductNotFound)

	_, err = svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "retired", Quantity: 1})
	assert.ErrorIs(t, err, ErrCartProductNotFound)

	_, err = svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: 0})
	assert.ErrorIs(t, err, ErrCartValidation)
}

func TestCartService_AddItemCapsMergedQuantity(t *testing.T) {
	svc := newCartFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: maxLineQuantity})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: maxLineQuantity})
	assert.ErrorIs(t, err, ErrCartValidation)

	cart, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []domain.CartItem{{ProductID: "tent", Quantity: maxLineQuantity}}, cart.Items)
}

func TestCartService_UpdateRemoveAndClear(t *testing.T) {
	svc := newCartFixture(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "lamp", Quantity: 1})
	require.NoError(t, err)

	cart, err := svc.UpdateItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	cart, err = svc.UpdateItem(ctx, CartItemCommand{UserID: "u1", ProductID: "tent", Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, []domain.CartItem{{ProductID: "lamp", Quantity: 1}}, cart.Items)

	_, err = svc.RemoveItem(ctx, "u1", "tent")
	assert.ErrorIs(t, err, ErrCartProductNotFound)

	cart, err = svc.RemoveItem(ctx, "u1", "lamp")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = svc.AddItem(ctx, CartItemCommand{UserID: "u1", ProductID: "lamp", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "u1"))
	require.NoError(t, svc.Clear(ctx, "u1"))

	cart, err = svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
