package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/campverse/api/internal/domain"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/repositories"
)

const (
	bookingsCollection     = "bookings"
	bookingCodesCollection = "bookingCodes"
)

// BookingRepository persists bookings. Code uniqueness is enforced by creating
// bookingCodes/<code> in the same transaction as the booking.
type BookingRepository struct {
	provider *pfirestore.Provider
	bookings *pfirestore.Collection[bookingDocument]
	codes    *pfirestore.Collection[bookingCodeDocument]
}

// NewBookingRepository constructs a Firestore-backed booking repository.
func NewBookingRepository(provider *pfirestore.Provider) (*BookingRepository, error) {
	if provider == nil {
		return nil, errors.New("booking repository requires firestore provider")
	}
	return &BookingRepository{
		provider: provider,
		bookings: pfirestore.NewCollection[bookingDocument](provider, bookingsCollection),
		codes:    pfirestore.NewCollection[bookingCodeDocument](provider, bookingCodesCollection),
	}, nil
}

func (r *BookingRepository) Create(ctx context.Context, booking domain.Booking) error {
	code := strings.TrimSpace(booking.Code)
	if code == "" || strings.TrimSpace(booking.ID) == "" {
		return errors.New("booking create: id and code are required")
	}
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		codeRef, err := r.codes.Ref(ctx, code)
		if err != nil {
			return err
		}
		bookingRef, err := r.bookings.Ref(ctx, booking.ID)
		if err != nil {
			return err
		}
		if err := tx.Create(codeRef, bookingCodeDocument{BookingID: booking.ID, CreatedAt: booking.CreatedAt.UTC()}); err != nil {
			return err
		}
		return tx.Create(bookingRef, newBookingDocument(booking))
	}, pfirestore.WithTxName("booking.create"))
	return pfirestore.WrapError("bookings.create", err)
}

func (r *BookingRepository) FindByID(ctx context.Context, bookingID string) (domain.Booking, error) {
	doc, err := r.bookings.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *BookingRepository) FindByCode(ctx context.Context, code string) (domain.Booking, error) {
	index, err := r.codes.Get(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return domain.Booking{}, err
	}
	return r.FindByID(ctx, index.Data.BookingID)
}

func (r *BookingRepository) List(ctx context.Context, filter repositories.BookingListFilter) (domain.Page[domain.Booking], error) {
	where := func(q firestore.Query) firestore.Query {
		if filter.UserID != "" {
			q = q.Where("userId", "==", filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		return q
	}
	return listPage(ctx, r.bookings, where, newestFirst, filter.Pagination, func(id string, doc bookingDocument) domain.Booking {
		return doc.toDomain(id)
	})
}

func (r *BookingRepository) Mutate(ctx context.Context, bookingID string, fn func(*domain.Booking) error) (domain.Booking, error) {
	var updated domain.Booking
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.bookings.Ref(ctx, bookingID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc bookingDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode booking %s: %w", bookingID, err)
		}
		booking := doc.toDomain(bookingID)
		if err := fn(&booking); err != nil {
			return err
		}
		if err := tx.Set(ref, newBookingDocument(booking)); err != nil {
			return err
		}
		updated = booking
		return nil
	}, pfirestore.WithTxName("booking.mutate"))
	if err != nil {
		return domain.Booking{}, pfirestore.WrapError("bookings.mutate", err)
	}
	return updated, nil
}
