package firestore

import (
	"context"
	"errors"
	"strings"

	domain "github.com/campverse/api/internal/domain"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
)

const cartsCollection = "carts"

// CartRepository persists carts keyed by user id.
type CartRepository struct {
	base *pfirestore.Collection[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{base: pfirestore.NewCollection[cartDocument](provider, cartsCollection)}, nil
}

func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart := domain.Cart{UserID: doc.ID, UpdatedAt: doc.Data.UpdatedAt}
	for _, item := range doc.Data.Items {
		cart.Items = append(cart.Items, domain.CartItem(item))
	}
	return cart, nil
}

func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	userID := strings.TrimSpace(cart.UserID)
	if userID == "" {
		return errors.New("cart repository: user id is required")
	}
	doc := cartDocument{Items: make([]cartItemDocument, 0, len(cart.Items)), UpdatedAt: cart.UpdatedAt.UTC()}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument(item))
	}
	err := r.base.Set(ctx, userID, doc)
	return err
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	err := r.base.Delete(ctx, userID)
	if pfirestore.IsNotFound(err) {
		return nil
	}
	return err
}
