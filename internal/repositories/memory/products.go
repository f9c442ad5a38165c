package memory

import (
	"context"
	"sort"
	"strings"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories"
)

type productRepository struct{ s *Store }

func (r productRepository) FindByID(_ context.Context, productID string) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.products[productID]
	if !ok {
		return domain.Product{}, repositories.NewNotFoundError("products.get", "product %s not found", productID)
	}
	return product, nil
}

func (r productRepository) List(_ context.Context, filter repositories.ProductListFilter) (domain.Page[domain.Product], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]domain.Product, 0, len(r.s.products))
	for _, product := range r.s.products {
		if filter.ActiveOnly && !product.Active {
			continue
		}
		items = append(items, product)
	}
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return paginate(items, filter.Pagination), nil
}

func (r productRepository) Upsert(_ context.Context, product domain.Product) error {
	if strings.TrimSpace(product.ID) == "" {
		return repositories.NewConflictError("products.upsert", "product id is required")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[product.ID] = product
	return nil
}
