package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/repositories"
)

// Registry wires every Firestore repository over one provider.
type Registry struct {
	provider      *pfirestore.Provider
	products      *ProductRepository
	orders        *OrderRepository
	bookings      *BookingRepository
	carts         *CartRepository
	notifications *NotificationRepository
	messages      *MessageRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every repository. Extra readiness probes are appended to the
// Firestore ping.
func NewRegistry(provider *pfirestore.Provider, checks ...repositories.DependencyCheck) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	reg := &Registry{provider: provider}
	var err error
	if reg.products, err = NewProductRepository(provider); err != nil {
		return nil, err
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, err
	}
	if reg.bookings, err = NewBookingRepository(provider); err != nil {
		return nil, err
	}
	if reg.carts, err = NewCartRepository(provider); err != nil {
		return nil, err
	}
	if reg.notifications, err = NewNotificationRepository(provider); err != nil {
		return nil, err
	}
	if reg.messages, err = NewMessageRepository(provider); err != nil {
		return nil, err
	}
	all := append([]repositories.DependencyCheck{{
		Name:     "firestore",
		Critical: true,
		Check:    func(ctx context.Context) error { return provider.Ping(ctx, productsCollection) },
	}}, checks...)
	if reg.health, err = repositories.NewDependencyHealthRepository(all); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Products() repositories.ProductRepository           { return r.products }
func (r *Registry) Orders() repositories.OrderRepository               { return r.orders }
func (r *Registry) Bookings() repositories.BookingRepository           { return r.bookings }
func (r *Registry) Carts() repositories.CartRepository                 { return r.carts }
func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }
func (r *Registry) Messages() repositories.MessageRepository           { return r.messages }
func (r *Registry) Health() repositories.HealthRepository              { return r.health }
