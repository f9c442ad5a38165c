package memory

import (
	"context"
	"time"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/repositories"
)

type bookingRepository struct{ s *Store }

func (r bookingRepository) Create(_ context.Context, booking domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.bookingCodes[booking.Code]; taken {
		return repositories.NewConflictError("bookings.create", "booking code %s already taken", booking.Code)
	}
	if _, exists := r.s.bookings[booking.ID]; exists {
		return repositories.NewConflictError("bookings.create", "booking %s already exists", booking.ID)
	}
	r.s.bookingCodes[booking.Code] = booking.ID
	r.s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

func (r bookingRepository) FindByID(_ context.Context, bookingID string) (domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	booking, ok := r.s.bookings[bookingID]
	if !ok {
		return domain.Booking{}, repositories.NewNotFoundError("bookings.get", "booking %s not found", bookingID)
	}
	return cloneBooking(booking), nil
}

func (r bookingRepository) FindByCode(ctx context.Context, code string) (domain.Booking, error) {
	r.s.mu.Lock()
	id, ok := r.s.bookingCodes[code]
	r.s.mu.Unlock()
	if !ok {
		return domain.Booking{}, repositories.NewNotFoundError("bookings.by_code", "booking code %s not found", code)
	}
	return r.FindByID(ctx, id)
}

func (r bookingRepository) List(_ context.Context, filter repositories.BookingListFilter) (domain.Page[domain.Booking], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]domain.Booking, 0)
	for _, booking := range r.s.bookings {
		if filter.UserID != "" && booking.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && booking.Status != filter.Status {
			continue
		}
		items = append(items, cloneBooking(booking))
	}
	sortNewestFirst(items, func(b domain.Booking) time.Time { return b.CreatedAt })
	return paginate(items, filter.Pagination), nil
}

func (r bookingRepository) Mutate(_ context.Context, bookingID string, fn func(*domain.Booking) error) (domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.bookings[bookingID]
	if !ok {
		return domain.Booking{}, repositories.NewNotFoundError("bookings.mutate", "booking %s not found", bookingID)
	}
	updated := cloneBooking(current)
	if err := fn(&updated); err != nil {
		return domain.Booking{}, err
	}
	r.s.bookings[bookingID] = updated
	return cloneBooking(updated), nil
}
