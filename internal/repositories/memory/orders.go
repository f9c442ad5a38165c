package memory

import (
	"context"
	"sort"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories"
)

type orderRepository struct{ s *Store }

func (r orderRepository) Place(_ context.Context, req repositories.PlaceOrderRequest) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.orders[req.Order.ID]; exists {
		return domain.Order{}, repositories.NewConflictError("orders.place", "order %s already exists", req.Order.ID)
	}

	items := make([]domain.OrderItem, 0, len(req.Lines))
	requested := make(map[string]int, len(req.Lines))
	for _, line := range req.Lines {
		requested[line.ProductID] += line.Quantity
		product, ok := r.s.products[line.ProductID]
		if !ok {
			return domain.Order{}, repositories.NewStockError(repositories.StockErrorProductNotFound, line.ProductID, line.Quantity, 0)
		}
		if !product.Active {
			return domain.Order{}, repositories.NewStockError(repositories.StockErrorProductInactive, line.ProductID, line.Quantity, product.Stock)
		}
		if requested[line.ProductID] > product.Stock {
			return domain.Order{}, repositories.NewStockError(repositories.StockErrorOutOfStock, line.ProductID, requested[line.ProductID], product.Stock)
		}
		items = append(items, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			LineTotal: product.Price * int64(line.Quantity),
		})
	}

	order := cloneOrder(req.Order)
	order.Items = items
	if req.Totals != nil {
		order.Totals = req.Totals(items)
	}
	for _, line := range req.Lines {
		product := r.s.products[line.ProductID]
		product.Stock -= line.Quantity
		product.UpdatedAt = order.CreatedAt
		r.s.products[line.ProductID] = product
	}
	r.s.orders[order.ID] = order
	if req.ClearCartOf != "" {
		delete(r.s.carts, req.ClearCartOf)
	}
	return cloneOrder(order), nil
}

func (r orderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewNotFoundError("orders.get", "order %s not found", orderID)
	}
	return cloneOrder(order), nil
}

func (r orderRepository) FindByPaymentReference(_ context.Context, reference string) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, order := range r.s.orders {
		if reference != "" && order.PaymentReference == reference {
			return cloneOrder(order), nil
		}
	}
	return domain.Order{}, repositories.NewNotFoundError("orders.by_payment", "order with payment %s not found", reference)
}

func (r orderRepository) List(_ context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]domain.Order, 0)
	for _, order := range r.s.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		items = append(items, cloneOrder(order))
	}
	sortNewestFirst(items, func(o domain.Order) time.Time { return o.CreatedAt })
	return paginate(items, filter.Pagination), nil
}

func (r orderRepository) Mutate(_ context.Context, orderID string, fn repositories.OrderMutator) (domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.orders[orderID]
	if !ok {
		return domain.Order{}, repositories.NewNotFoundError("orders.mutate", "order %s not found", orderID)
	}
	updated := cloneOrder(current)
	restock, err := fn(&updated)
	if err != nil {
		return domain.Order{}, err
	}
	if restock {
		r.restockLocked(updated, updated.UpdatedAt)
	}
	r.s.orders[orderID] = updated
	return cloneOrder(updated), nil
}

func (r orderRepository) ListExpired(_ context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var expired []domain.Order
	for _, order := range r.s.orders {
		if order.ExpiredBefore(cutoff) {
			expired = append(expired, cloneOrder(order))
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].CreatedAt.Before(expired[j].CreatedAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

func (r orderRepository) Expire(_ context.Context, orderID string, cutoff time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[orderID]
	if !ok || !order.ExpiredBefore(cutoff) {
		return false, nil
	}
	r.restockLocked(order, cutoff)
	delete(r.s.orders, orderID)
	return true, nil
}

func (r orderRepository) restockLocked(order domain.Order, at time.Time) {
	for _, item := range order.Items {
		product, ok := r.s.products[item.ProductID]
		if !ok {
			continue
		}
		product.Stock += item.Quantity
		if !at.IsZero() {
			product.UpdatedAt = at
		}
		r.s.products[item.ProductID] = product
	}
}
