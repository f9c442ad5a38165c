package memory

import (
	"context"
	"slices"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories"
)

type cartRepository struct{ s *Store }

func (r cartRepository) Get(_ context.Context, userID string) (domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart, ok := r.s.carts[userID]
	if !ok {
		return domain.Cart{}, repositories.NewNotFoundError("carts.get", "cart for %s not found", userID)
	}
	cart.Items = slices.Clone(cart.Items)
	return cart, nil
}

func (r cartRepository) Save(_ context.Context, cart domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart.Items = slices.Clone(cart.Items)
	r.s.carts[cart.UserID] = cart
	return nil
}

func (r cartRepository) Delete(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.carts, userID)
	return nil
}
