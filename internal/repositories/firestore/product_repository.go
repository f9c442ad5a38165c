package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/campverse/api/internal/domain"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository reads catalogue products from Firestore.
type ProductRepository struct {
	base *pfirestore.Collection[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{base: pfirestore.NewCollection[productDocument](provider, productsCollection)}, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.Page[domain.Product], error) {
	var where pfirestore.QueryBuilder
	if filter.ActiveOnly {
		where = func(q firestore.Query) firestore.Query { return q.Where("active", "==", true) }
	}
	return listPage(ctx, r.base, where, pfirestore.Sort{Field: "name", Direction: firestore.Asc}, filter.Pagination, func(id string, doc productDocument) domain.Product {
		return doc.toDomain(id)
	})
}

func (r *ProductRepository) Upsert(ctx context.Context, product domain.Product) error {
	id := strings.TrimSpace(product.ID)
	if id == "" {
		return errors.New("product repository: product id is required")
	}
	err := r.base.Set(ctx, id, newProductDocument(product))
	return err
}
