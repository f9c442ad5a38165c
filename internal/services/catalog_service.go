package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/repositories"
)

// ErrCatalogRepositoryMissing indicates the repository dependency is absent.
var ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
}

type catalogService struct {
	repo repositories.ProductRepository
}

// NewCatalogService constructs the read-only product catalog.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, ErrCatalogRepositoryMissing
	}
	return &catalogService{repo: deps.Products}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, params pagination.Params) (domain.Page[Product], error) {
	return s.repo.List(ctx, repositories.ProductListFilter{
		ActiveOnly: true,
		Pagination: normalizePage(params),
	})
}

// GetProduct hides inactive products from shoppers.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductNotFound)
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, mapRepositoryError(err, ErrProductNotFound, nil)
	}
	if !product.Active {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	return product, nil
}
