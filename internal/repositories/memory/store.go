// Package memory implements the repository contracts in process. A single mutex guards every
// collection so multi-document operations behave like Firestore transactions.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/pagination"
	"github.com/campverse/api/internal/repositories"
)

// Store holds every collection.
type Store struct {
	mu            sync.Mutex
	products      map[string]domain.Product
	orders        map[string]domain.Order
	bookings      map[string]domain.Booking
	bookingCodes  map[string]string
	carts         map[string]domain.Cart
	notifications map[string]domain.Notification
	messages      map[string]domain.Message
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		products:      make(map[string]domain.Product),
		orders:        make(map[string]domain.Order),
		bookings:      make(map[string]domain.Booking),
		bookingCodes:  make(map[string]string),
		carts:         make(map[string]domain.Cart),
		notifications: make(map[string]domain.Notification),
		messages:      make(map[string]domain.Message),
	}
}

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) Products() repositories.ProductRepository           { return productRepository{s} }
func (s *Store) Orders() repositories.OrderRepository               { return orderRepository{s} }
func (s *Store) Bookings() repositories.BookingRepository           { return bookingRepository{s} }
func (s *Store) Carts() repositories.CartRepository                 { return cartRepository{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return notificationRepository{s} }
func (s *Store) Messages() repositories.MessageRepository           { return messageRepository{s} }

// Health reports a single always-ok probe unless replaced with SetHealth.
func (s *Store) Health() repositories.HealthRepository {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.health == nil {
		s.health, _ = repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
			{Name: "memory", Critical: true, Check: func(context.Context) error { return nil }},
		})
	}
	return s.health
}

// SetHealth replaces the readiness probes, typically with broker checks.
func (s *Store) SetHealth(health repositories.HealthRepository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = health
}

func paginate[T any](items []T, params pagination.Params) domain.Page[T] {
	total := int64(len(items))
	start := params.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + params.Limit
	if params.Limit <= 0 || end > len(items) {
		end = len(items)
	}
	return domain.Page[T]{Items: append([]T(nil), items[start:end]...), Total: total}
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	o.History = cloneHistory(o.History)
	return o
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.Customers = slices.Clone(b.Customers)
	b.History = cloneHistory(b.History)
	return b
}

func cloneHistory(history []domain.HistoryEntry) []domain.HistoryEntry {
	out := slices.Clone(history)
	for i := range out {
		out[i].Images = slices.Clone(out[i].Images)
	}
	return out
}
