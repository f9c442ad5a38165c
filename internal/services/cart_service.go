package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories"
)

var errCartRepositoryRequired = errors.New("cart service: repository is required")

const maxCartLines = 50

// CartServiceDeps wires the repositories used by cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Products   repositories.ProductRepository
	Clock      func() time.Time
	Logger     Logger
}

type cartService struct {
	repo     repositories.CartRepository
	products repositories.ProductRepository
	now      func() time.Time
	logger   Logger
}

// NewCartService constructs a CartService.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil || deps.Products == nil {
		return nil, errCartRepositoryRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

// GetCart returns the user's cart. A user without a cart gets an empty one.
func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Cart{}, fmt.Errorf("%w: userId is required", ErrCartValidation)
	}
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return Cart{UserID: userID, Items: []CartItem{}}, nil
		}
		return Cart{}, err
	}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	return cart, nil
}

// AddItem merges quantity into an existing line for the same product.
func (s *cartService) AddItem(ctx context.Context, cmd CartItemCommand) (Cart, error) {
	if err := validateCartCommand(cmd, 1); err != nil {
		return Cart{}, err
	}
	if err := s.ensureSellable(ctx, cmd.ProductID); err != nil {
		return Cart{}, err
	}
	cart, err := s.GetCart(ctx, cmd.UserID)
	if err != nil {
		return Cart{}, err
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if idx := cartLine(cart, productID); idx >= 0 {
		merged := cart.Items[idx].Quantity + cmd.Quantity
		if merged > maxLineQuantity {
			v := newValidation(ErrCartValidation)
			v.addf("quantity for %s would be %d, at most %d per product", productID, merged, maxLineQuantity)
			return Cart{}, v.err()
		}
		cart.Items[idx].Quantity = merged
	} else {
		if len(cart.Items) >= maxCartLines {
			return Cart{}, fmt.Errorf("%w: cart holds at most %d products", ErrCartValidation, maxCartLines)
		}
		cart.Items = append(cart.Items, CartItem{ProductID: productID, Quantity: cmd.Quantity})
	}
	return s.save(ctx, cart)
}

// UpdateItem sets the quantity of a line. Zero removes it.
func (s *cartService) UpdateItem(ctx context.Context, cmd CartItemCommand) (Cart, error) {
	if err := validateCartCommand(cmd, 0); err != nil {
		return Cart{}, err
	}
	cart, err := s.GetCart(ctx, cmd.UserID)
	if err != nil {
		return Cart{}, err
	}
	productID := strings.TrimSpace(cmd.ProductID)
	idx := cartLine(cart, productID)
	if idx < 0 {
		return Cart{}, fmt.Errorf("%w: %s is not in the cart", ErrCartProductNotFound, productID)
	}
	if cmd.Quantity == 0 {
		cart.Items = slices.Delete(cart.Items, idx, idx+1)
	} else {
		cart.Items[idx].Quantity = cmd.Quantity
	}
	return s.save(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, userID string, productID string) (Cart, error) {
	return s.UpdateItem(ctx, CartItemCommand{UserID: userID, ProductID: productID, Quantity: 0})
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: userId is required", ErrCartValidation)
	}
	return s.repo.Delete(ctx, userID)
}

func (s *cartService) save(ctx context.Context, cart Cart) (Cart, error) {
	cart.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, cart); err != nil {
		return Cart{}, err
	}
	s.logger(ctx, "cart.updated", map[string]any{"userId": cart.UserID, "lines": len(cart.Items), "quantity": cart.Quantity()})
	return cart, nil
}

func (s *cartService) ensureSellable(ctx context.Context, productID string) error {
	product, err := s.products.FindByID(ctx, strings.TrimSpace(productID))
	if err != nil {
		return mapRepositoryError(err, ErrCartProductNotFound, nil)
	}
	if !product.Active {
		return fmt.Errorf("%w: product %s is not available", ErrCartProductNotFound, product.ID)
	}
	return nil
}

func cartLine(cart Cart, productID string) int {
	return slices.IndexFunc(cart.Items, func(item domain.CartItem) bool {
		return item.ProductID == productID
	})
}

func validateCartCommand(cmd CartItemCommand, minQuantity int) error {
	v := newValidation(ErrCartValidation)
	if strings.TrimSpace(cmd.UserID) == "" {
		v.addf("userId is required")
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		v.addf("productId is required")
	}
	if cmd.Quantity < minQuantity || cmd.Quantity > maxLineQuantity {
		v.addf("quantity must be between %d and %d", minQuantity, maxLineQuantity)
	}
	return v.err()
}
