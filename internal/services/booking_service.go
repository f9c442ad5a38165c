package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/platform/events"
	"github.com/campverse/api/internal/repositories"
)

const (
	bookingIDPrefix            = "bkg_"
	defaultBookingCodeAttempts = 5
	maxBookingCustomers        = 50
	maxBookingNote             = 1000
)

// BookingServiceDeps bundles collaborators for the booking service.
type BookingServiceDeps struct {
	Bookings     repositories.BookingRepository
	Notifier     Notifier
	Events       events.Publisher
	CodeAttempts int
	// CodeGenerator returns a candidate booking code for the given instant.
	CodeGenerator func(now time.Time) string
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        Logger
}

type bookingService struct {
	bookings     repositories.BookingRepository
	notifier     Notifier
	events       eventEmitter
	codeAttempts int
	newCode      func(time.Time) string
	clock        func() time.Time
	newID        func() string
	logger       Logger
}

// NewBookingService wires dependencies into a BookingService.
func NewBookingService(deps BookingServiceDeps) (BookingService, error) {
	if deps.Bookings == nil {
		return nil, errors.New("booking service: booking repository is required")
	}
	attempts := deps.CodeAttempts
	if attempts <= 0 {
		attempts = defaultBookingCodeAttempts
	}
	newCode := deps.CodeGenerator
	if newCode == nil {
		newCode = randomBookingCode
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &bookingService{
		bookings:     deps.Bookings,
		notifier:     deps.Notifier,
		events:       eventEmitter{publisher: deps.Events, newID: newID, logger: logger},
		codeAttempts: attempts,
		newCode:      newCode,
		clock:        func() time.Time { return clock().UTC() },
		newID:        newID,
		logger:       logger,
	}, nil
}

// randomBookingCode formats BK<yyMMdd><4 digits>.
func randomBookingCode(now time.Time) string {
	return fmt.Sprintf("BK%s%04d", now.Format("060102"), rand.IntN(10000))
}

func (s *bookingService) CreateBooking(ctx context.Context, cmd CreateBookingCommand) (Booking, error) {
	customers, err := validateBooking(cmd)
	if err != nil {
		return Booking{}, err
	}

	now := s.clock()
	booking := Booking{
		ID:             bookingIDPrefix + s.newID(),
		UserID:         strings.TrimSpace(cmd.UserID),
		TourID:         strings.TrimSpace(cmd.TourID),
		TourName:       strings.TrimSpace(cmd.TourName),
		StartDate:      cmd.StartDate.UTC(),
		EndDate:        cmd.EndDate.UTC(),
		TotalSeats:     cmd.TotalSeats,
		AvailableSeats: cmd.AvailableSeats,
		Customers:      customers,
		Status:         domain.BookingStatusPending,
		Note:           strings.TrimSpace(cmd.Note),
		Locale:         localeString(ctx),
		CreatedAt:      now,
		UpdatedAt:      now,
		History: []domain.HistoryEntry{{
			Status: string(domain.BookingStatusPending),
			Date:   now,
			Note:   "booking received",
			Actor:  strings.TrimSpace(cmd.UserID),
		}},
	}

	if booking.TotalPeople() > booking.AvailableSeats {
		return Booking{}, fmt.Errorf("%w: %d people requested, %d seats available", ErrBookingNoSeats, booking.TotalPeople(), booking.AvailableSeats)
	}

	created := false
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		booking.Code = strings.ToUpper(s.newCode(now))
		err := s.bookings.Create(ctx, booking)
		if err == nil {
			created = true
			break
		}
		if !repositories.IsConflict(err) {
			return Booking{}, fmt.Errorf("booking: create: %w", err)
		}
		s.logger(ctx, "booking.code.collision", map[string]any{"code": booking.Code, "attempt": attempt})
	}
	if !created {
		return Booking{}, fmt.Errorf("%w after %d attempts", ErrBookingCodeExhausted, s.codeAttempts)
	}

	s.logger(ctx, "booking.created", map[string]any{
		"bookingId":   booking.ID,
		"code":        booking.Code,
		"tourId":      booking.TourID,
		"totalPeople": booking.TotalPeople(),
	})
	s.events.emit(ctx, events.TypeBookingCreated, booking.ID, booking.UserID, now, newBookingEventPayload(booking, "", booking.UserID))
	s.notify(ctx, booking, templateBookingCreated, booking.Code, booking.TourName)
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (Booking, error) {
	booking, err := s.bookings.FindByID(ctx, strings.TrimSpace(bookingID))
	if err != nil {
		return Booking{}, mapRepositoryError(err, ErrBookingNotFound, nil)
	}
	return booking, nil
}

func (s *bookingService) GetBookingByCode(ctx context.Context, code string) (Booking, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Booking{}, fmt.Errorf("%w: code is required", ErrBookingNotFound)
	}
	booking, err := s.bookings.FindByCode(ctx, code)
	if err != nil {
		return Booking{}, mapRepositoryError(err, ErrBookingNotFound, nil)
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter BookingListFilter) (domain.Page[Booking], error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return domain.Page[Booking]{}, &ValidationError{Kind: ErrBookingValidation, Fields: []string{fmt.Sprintf("status %q is not supported", filter.Status)}}
	}
	return s.bookings.List(ctx, repositories.BookingListFilter{
		UserID:     strings.TrimSpace(filter.UserID),
		Status:     filter.Status,
		Pagination: normalizePage(filter.Pagination),
	})
}

// UpdateStatus applies an administrative transition. Seats are left untouched.
func (s *bookingService) UpdateStatus(ctx context.Context, cmd UpdateBookingStatusCommand) (Booking, error) {
	if !cmd.Status.IsValid() {
		return Booking{}, &ValidationError{Kind: ErrBookingValidation, Fields: []string{fmt.Sprintf("status %q is not supported", cmd.Status)}}
	}
	return s.transition(ctx, cmd.BookingID, "", cmd.Status, cmd.ActorID, cmd.Note)
}

func (s *bookingService) CancelBooking(ctx context.Context, cmd CancelBookingCommand) (Booking, error) {
	return s.transition(ctx, cmd.BookingID, cmd.UserID, domain.BookingStatusCancelled, cmd.ActorID, cmd.Reason)
}

func (s *bookingService) transition(ctx context.Context, bookingID, ownerID string, next BookingStatus, actor, note string) (Booking, error) {
	now := s.clock()
	note = strings.TrimSpace(note)
	var previous BookingStatus
	updated, err := s.bookings.Mutate(ctx, strings.TrimSpace(bookingID), func(booking *domain.Booking) error {
		if ownerID != "" && booking.UserID != ownerID {
			return ErrBookingNotFound
		}
		previous = booking.Status
		if !booking.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrBookingInvalidTransition, booking.Status, next)
		}
		booking.Status = next
		booking.UpdatedAt = now
		if next == domain.BookingStatusCancelled {
			booking.CancelledAt = &now
			booking.CancelReason = note
		}
		booking.History = append(booking.History, domain.HistoryEntry{
			Status: string(next),
			Date:   now,
			Note:   note,
			Actor:  actor,
		})
		return nil
	})
	if err != nil {
		return Booking{}, mapRepositoryError(err, ErrBookingNotFound, nil)
	}

	s.logger(ctx, "booking.status.changed", map[string]any{
		"bookingId": updated.ID,
		"from":      string(previous),
		"to":        string(updated.Status),
		"actor":     actor,
	})
	s.events.emit(ctx, events.TypeBookingStatusChanged, updated.ID, updated.UserID, now, newBookingEventPayload(updated, previous, actor))
	s.notify(ctx, updated, templateBookingStatus, updated.Code, statusLabel(updated.Status))
	return updated, nil
}

func (s *bookingService) notify(ctx context.Context, booking Booking, template string, args ...any) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, NotifyCommand{
		UserID:    booking.UserID,
		Type:      domain.NotificationTypeBookingStatus,
		Template:  template,
		Args:      args,
		Locale:    booking.Locale,
		BookingID: booking.ID,
		Data: map[string]any{
			"code":   booking.Code,
			"status": string(booking.Status),
		},
	}); err != nil {
		s.logger(ctx, "booking.notify.failed", map[string]any{"bookingId": booking.ID, "error": err})
	}
}

func validateBooking(cmd CreateBookingCommand) ([]BookingCustomer, error) {
	v := newValidation(ErrBookingValidation)
	if strings.TrimSpace(cmd.UserID) == "" {
		v.addf("userId is required")
	}
	if strings.TrimSpace(cmd.TourID) == "" {
		v.addf("tourId is required")
	}
	if strings.TrimSpace(cmd.TourName) == "" {
		v.addf("tourName is required")
	}
	if cmd.StartDate.IsZero() || cmd.EndDate.IsZero() {
		v.addf("startDate and endDate are required")
	} else if cmd.EndDate.Before(cmd.StartDate) {
		v.addf("endDate must not be before startDate")
	}
	if cmd.TotalSeats < 0 {
		v.addf("totalSeats must not be negative")
	}
	if cmd.AvailableSeats < 0 || cmd.AvailableSeats > cmd.TotalSeats {
		v.addf("availableSeats must be between 0 and totalSeats")
	}
	if len([]rune(cmd.Note)) > maxBookingNote {
		v.addf("note must be at most %d characters", maxBookingNote)
	}

	switch {
	case len(cmd.Customers) == 0:
		v.addf("customers must contain at least one entry")
	case len(cmd.Customers) > maxBookingCustomers:
		v.addf("customers must contain at most %d entries", maxBookingCustomers)
	}

	customers := slices.Clone(cmd.Customers)
	representatives, adults := 0, 0
	for i := range customers {
		c := &customers[i]
		c.FullName = strings.TrimSpace(c.FullName)
		c.Phone = strings.TrimSpace(c.Phone)
		c.Email = strings.ToLower(strings.TrimSpace(c.Email))
		if c.FullName == "" {
			v.addf("customers[%d].fullName is required", i)
		}
		if c.TotalAdults < 0 || c.TotalChildren < 0 || c.TotalBabies < 0 {
			v.addf("customers[%d] counts must not be negative", i)
			continue
		}
		if c.Representative {
			representatives++
			if c.Phone == "" {
				v.addf("customers[%d].phone is required for the representative", i)
			}
		}
		adults += c.TotalAdults
		c.TotalPeople = c.Headcount()
	}
	if len(customers) > 0 && representatives != 1 {
		v.addf("exactly one customer must be the representative")
	}
	if len(customers) > 0 && adults == 0 {
		v.addf("at least one adult is required")
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return customers, nil
}
