package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/repositories"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewStore()
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(s.T(), s.store.Products().Upsert(s.ctx, domain.Product{ID: "tent", Name: "Tent", Price: 1500, Stock: 3, Active: true}))
	require.NoError(s.T(), s.store.Products().Upsert(s.ctx, domain.Product{ID: "stove", Name: "Stove", Price: 700, Stock: 1, Active: true}))
}

func (s *StoreSuite) place(id string, createdAt time.Time, lines ...repositories.OrderLine) (domain.Order, error) {
	return s.store.Orders().Place(s.ctx, repositories.PlaceOrderRequest{
		Order: domain.Order{
			ID:            id,
			UserID:        "u1",
			PaymentMethod: domain.PaymentMethodCOD,
			PaymentStatus: domain.PaymentStatusPending,
			Status:        domain.OrderStatusPending,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		},
		Lines: lines,
		Totals: func(items []domain.OrderItem) domain.OrderTotals {
			var sum int64
			for _, item := range items {
				sum += item.LineTotal
			}
			return domain.OrderTotals{ItemsTotal: sum, GrandTotal: sum}
		},
	})
}

func (s *StoreSuite) stock(productID string) int {
	product, err := s.store.Products().FindByID(s.ctx, productID)
	require.NoError(s.T(), err)
	return product.Stock
}

func (s *StoreSuite) TestPlaceExactStockLeavesZero() {
	order, err := s.place("o1", s.now, repositories.OrderLine{ProductID: "tent", Quantity: 3})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(4500), order.Totals.GrandTotal)
	assert.Equal(s.T(), "Tent", order.Items[0].Name)
	assert.Equal(s.T(), 0, s.stock("tent"))
}

func (s *StoreSuite) TestPlaceOneMoreThanStockFails() {
	_, err := s.place("o1", s.now, repositories.OrderLine{ProductID: "tent", Quantity: 4})
	stockErr, ok := repositories.AsStockError(err)
	require.True(s.T(), ok, "expected stock error, got %v", err)
	assert.Equal(s.T(), repositories.StockErrorOutOfStock, stockErr.Code)
	assert.Equal(s.T(), 3, s.stock("tent"))
}

func (s *StoreSuite) TestPlaceIsAllOrNothing() {
	_, err := s.place("o1", s.now,
		repositories.OrderLine{ProductID: "tent", Quantity: 1},
		repositories.OrderLine{ProductID: "stove", Quantity: 2},
	)
	require.Error(s.T(), err)
	assert.Equal(s.T(), 3, s.stock("tent"))
	assert.Equal(s.T(), 1, s.stock("stove"))

	_, err = s.store.Orders().FindByID(s.ctx, "o1")
	assert.True(s.T(), repositories.IsNotFound(err))
}

func (s *StoreSuite) TestPlaceClearsCart() {
	require.NoError(s.T(), s.store.Carts().Save(s.ctx, domain.Cart{UserID: "u1", Items: []domain.CartItem{{ProductID: "tent", Quantity: 1}}}))
	_, err := s.store.Orders().Place(s.ctx, repositories.PlaceOrderRequest{
		Order:       domain.Order{ID: "o1", UserID: "u1"},
		Lines:       []repositories.OrderLine{{ProductID: "tent", Quantity: 1}},
		ClearCartOf: "u1",
	})
	require.NoError(s.T(), err)
	_, err = s.store.Carts().Get(s.ctx, "u1")
	assert.True(s.T(), repositories.IsNotFound(err))
}

func (s *StoreSuite) TestConcurrentLastUnit() {
	var g errgroup.Group
	results := make([]error, 2)
	for i := range results {
		i := i
		g.Go(func() error {
			_, err := s.place([]string{"a", "b"}[i], s.now, repositories.OrderLine{ProductID: "stove", Quantity: 1})
			results[i] = err
			return nil
		})
	}
	require.NoError(s.T(), g.Wait())

	successes, outOfStock := 0, 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		if stockErr, ok := repositories.AsStockError(err); ok && stockErr.Code == repositories.StockErrorOutOfStock {
			outOfStock++
		}
	}
	assert.Equal(s.T(), 1, successes)
	assert.Equal(s.T(), 1, outOfStock)
	assert.Equal(s.T(), 0, s.stock("stove"))
}

func (s *StoreSuite) TestExpireRestoresStockAndDeletes() {
	_, err := s.place("old", s.now.Add(-16*time.Minute), repositories.OrderLine{ProductID: "tent", Quantity: 2})
	require.NoError(s.T(), err)
	_, err = s.place("fresh", s.now.Add(-time.Minute), repositories.OrderLine{ProductID: "tent", Quantity: 1})
	require.NoError(s.T(), err)

	cutoff := s.now.Add(-15 * time.Minute)
	expired, err := s.store.Orders().ListExpired(s.ctx, cutoff, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), expired, 1)
	assert.Equal(s.T(), "old", expired[0].ID)

	ok, err := s.store.Orders().Expire(s.ctx, "old", cutoff)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
	assert.Equal(s.T(), 2, s.stock("tent"))

	ok, err = s.store.Orders().Expire(s.ctx, "fresh", cutoff)
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *StoreSuite) TestMutateRestock() {
	_, err := s.place("o1", s.now, repositories.OrderLine{ProductID: "tent", Quantity: 2})
	require.NoError(s.T(), err)

	updated, err := s.store.Orders().Mutate(s.ctx, "o1", func(order *domain.Order) (bool, error) {
		order.Status = domain.OrderStatusCancelled
		return true, nil
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), domain.OrderStatusCancelled, updated.Status)
	assert.Equal(s.T(), 3, s.stock("tent"))
}

func (s *StoreSuite) TestBookingCodeUniqueness() {
	booking := domain.Booking{ID: "b1", Code: "BK2406010001", UserID: "u1", CreatedAt: s.now}
	require.NoError(s.T(), s.store.Bookings().Create(s.ctx, booking))

	booking.ID = "b2"
	err := s.store.Bookings().Create(s.ctx, booking)
	assert.True(s.T(), repositories.IsConflict(err))

	found, err := s.store.Bookings().FindByCode(s.ctx, "BK2406010001")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "b1", found.ID)
}

func (s *StoreSuite) TestNotificationsBulkOperations() {
	repo := s.store.Notifications()
	for i, id := range []string{"n1", "n2", "n3"} {
		require.NoError(s.T(), repo.Insert(s.ctx, domain.Notification{ID: id, UserID: "u1", CreatedAt: s.now.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(s.T(), repo.Insert(s.ctx, domain.Notification{ID: "other", UserID: "u2", CreatedAt: s.now}))

	page, err := repo.List(s.ctx, repositories.NotificationListFilter{UserID: "u1", Pagination: pagination.Params{Page: 1, Limit: 2}})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), page.Total)
	require.Len(s.T(), page.Items, 2)
	assert.Equal(s.T(), "n3", page.Items[0].ID)

	changed, err := repo.MarkAllRead(s.ctx, "u1", s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, changed)
	changed, err = repo.MarkAllRead(s.ctx, "u1", s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, changed)

	unread, err := repo.CountUnread(s.ctx, "u2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), unread)

	err = repo.Delete(s.ctx, "u1", "other")
	assert.True(s.T(), repositories.IsNotFound(err))

	deleted, err := repo.DeleteAll(s.ctx, "u1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 3, deleted)
}

func (s *StoreSuite) TestConversationIsSymmetric() {
	repo := s.store.Messages()
	require.NoError(s.T(), repo.Insert(s.ctx, domain.Message{ID: "m1", FromUserID: "a", ToUserID: "b", CreatedAt: s.now}))
	require.NoError(s.T(), repo.Insert(s.ctx, domain.Message{ID: "m2", FromUserID: "b", ToUserID: "a", CreatedAt: s.now.Add(time.Second)}))
	require.NoError(s.T(), repo.Insert(s.ctx, domain.Message{ID: "m3", FromUserID: "a", ToUserID: "c", CreatedAt: s.now}))

	page, err := repo.ListConversation(s.ctx, "b", "a", pagination.Params{Page: 1, Limit: 10})
	require.NoError(s.T(), err)
	require.Len(s.T(), page.Items, 2)
	assert.Equal(s.T(), "m2", page.Items[0].ID)
}
