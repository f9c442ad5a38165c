package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/campverse/api/internal/domain"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists orders and performs every stock mutation inside Firestore
// transactions.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
	products *pfirestore.Collection[productDocument]
	carts    *pfirestore.Collection[cartDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewCollection[orderDocument](provider, ordersCollection),
		products: pfirestore.NewCollection[productDocument](provider, productsCollection),
		carts:    pfirestore.NewCollection[cartDocument](provider, cartsCollection),
	}, nil
}

func (r *OrderRepository) Place(ctx context.Context, req repositories.PlaceOrderRequest) (domain.Order, error) {
	orderID := strings.TrimSpace(req.Order.ID)
	if orderID == "" {
		return domain.Order{}, errors.New("order place: order id is required")
	}
	if len(req.Lines) == 0 {
		return domain.Order{}, errors.New("order place: at least one line is required")
	}

	var placed domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		refs := make([]*firestore.DocumentRef, 0, len(req.Lines))
		refIndex := make(map[string]int, len(req.Lines))
		for _, line := range req.Lines {
			if _, seen := refIndex[line.ProductID]; seen {
				continue
			}
			ref, err := r.products.Ref(ctx, line.ProductID)
			if err != nil {
				return err
			}
			refIndex[line.ProductID] = len(refs)
			refs = append(refs, ref)
		}
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}

		products := make(map[string]productDocument, len(snaps))
		requested := make(map[string]int, len(req.Lines))
		items := make([]domain.OrderItem, 0, len(req.Lines))
		for _, line := range req.Lines {
			snap := snaps[refIndex[line.ProductID]]
			if !snap.Exists() {
				return repositories.NewStockError(repositories.StockErrorProductNotFound, line.ProductID, line.Quantity, 0)
			}
			product, ok := products[line.ProductID]
			if !ok {
				if err := snap.DataTo(&product); err != nil {
					return fmt.Errorf("decode product %s: %w", line.ProductID, err)
				}
				products[line.ProductID] = product
			}
			if !product.Active {
				return repositories.NewStockError(repositories.StockErrorProductInactive, line.ProductID, line.Quantity, product.Stock)
			}
			requested[line.ProductID] += line.Quantity
			if requested[line.ProductID] > product.Stock {
				return repositories.NewStockError(repositories.StockErrorOutOfStock, line.ProductID, requested[line.ProductID], product.Stock)
			}
			items = append(items, domain.OrderItem{
				ProductID: line.ProductID,
				Name:      product.Name,
				UnitPrice: product.Price,
				Quantity:  line.Quantity,
				LineTotal: product.Price * int64(line.Quantity),
			})
		}

		order := req.Order
		order.ID = orderID
		order.Items = items
		if req.Totals != nil {
			order.Totals = req.Totals(items)
		}

		for productID, quantity := range requested {
			if err := tx.Update(refs[refIndex[productID]], []firestore.Update{
				{Path: "stock", Value: products[productID].Stock - quantity},
				{Path: "updatedAt", Value: order.CreatedAt.UTC()},
			}); err != nil {
				return err
			}
		}

		orderRef, err := r.orders.Ref(ctx, orderID)
		if err != nil {
			return err
		}
		if err := tx.Create(orderRef, newOrderDocument(order)); err != nil {
			return err
		}
		if req.ClearCartOf != "" {
			cartRef, err := r.carts.Ref(ctx, req.ClearCartOf)
			if err != nil {
				return err
			}
			if err := tx.Delete(cartRef); err != nil {
				return err
			}
		}
		placed = order
		return nil
	}, pfirestore.WithTxName("order.place"))
	if err != nil {
		return domain.Order{}, wrapStockError("orders.place", err)
	}
	return placed, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *OrderRepository) FindByPaymentReference(ctx context.Context, reference string) (domain.Order, error) {
	if strings.TrimSpace(reference) == "" {
		return domain.Order{}, repositories.NewNotFoundError("orders.by_payment", "payment reference is empty")
	}
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("paymentReference", "==", reference).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, repositories.NewNotFoundError("orders.by_payment", "order with payment %s not found", reference)
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	where := func(q firestore.Query) firestore.Query {
		if filter.UserID != "" {
			q = q.Where("userId", "==", filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return q
	}
	return listPage(ctx, r.orders, where, newestFirst, filter.Pagination, func(id string, doc orderDocument) domain.Order {
		return doc.toDomain(id)
	})
}

func (r *OrderRepository) Mutate(ctx context.Context, orderID string, fn repositories.OrderMutator) (domain.Order, error) {
	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.orders.Ref(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}
		order := doc.toDomain(orderID)
		restock, err := fn(&order)
		if err != nil {
			return err
		}
		if restock {
			if err := r.restock(ctx, tx, order.Items, order.UpdatedAt); err != nil {
				return err
			}
		}
		if err := tx.Set(ref, newOrderDocument(order)); err != nil {
			return err
		}
		updated = order
		return nil
	}, pfirestore.WithTxName("order.mutate"))
	if err != nil {
		return domain.Order{}, wrapStockError("orders.mutate", err)
	}
	return updated, nil
}

func (r *OrderRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("paymentMethod", "==", string(domain.PaymentMethodCOD)).
			Where("paymentStatus", "==", string(domain.PaymentStatusPending)).
			Where("status", "==", string(domain.OrderStatusPending)).
			Where("createdAt", "<", cutoff.UTC()).
			OrderBy("createdAt", firestore.Asc)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders, nil
}

func (r *OrderRepository) Expire(ctx context.Context, orderID string, cutoff time.Time) (bool, error) {
	expired := false
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		expired = false
		ref, err := r.orders.Ref(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			if pfirestore.IsNotFound(err) {
				return nil
			}
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}
		order := doc.toDomain(orderID)
		if !order.ExpiredBefore(cutoff) {
			return nil
		}
		if err := r.restock(ctx, tx, order.Items, cutoff); err != nil {
			return err
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}
		expired = true
		return nil
	}, pfirestore.WithTxName("order.expire"))
	if err != nil {
		return false, pfirestore.WrapError("orders.expire", err)
	}
	return expired, nil
}

// restock returns line quantities to their products. Products deleted since purchase are
// skipped. All reads happen before the first write.
func (r *OrderRepository) restock(ctx context.Context, tx *firestore.Transaction, items []domain.OrderItem, at time.Time) error {
	quantities := make(map[string]int, len(items))
	refs := make([]*firestore.DocumentRef, 0, len(items))
	for _, item := range items {
		if _, seen := quantities[item.ProductID]; !seen {
			ref, err := r.products.Ref(ctx, item.ProductID)
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
		quantities[item.ProductID] += item.Quantity
	}
	snaps, err := tx.GetAll(refs)
	if err != nil {
		return err
	}
	for i, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var product productDocument
		if err := snap.DataTo(&product); err != nil {
			return fmt.Errorf("decode product %s: %w", refs[i].ID, err)
		}
		if err := tx.Update(refs[i], []firestore.Update{
			{Path: "stock", Value: product.Stock + quantities[refs[i].ID]},
			{Path: "updatedAt", Value: at.UTC()},
		}); err != nil {
			return err
		}
	}
	return nil
}

func wrapStockError(op string, err error) error {
	if err == nil {
		return nil
	}
	if stockErr, ok := repositories.AsStockError(err); ok {
		if stockErr.Op == "" {
			stockErr.Op = op
		}
		return stockErr
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return err
	}
	return pfirestore.WrapError(op, err)
}
