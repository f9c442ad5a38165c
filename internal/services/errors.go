package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/campverse/api/internal/repositories"
)

var (
	// ErrOrderValidation signals the order request failed validation.
	ErrOrderValidation = errors.New("order: validation failed")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderOutOfStock indicates a line requested more than the remaining stock.
	ErrOrderOutOfStock = errors.New("order: out of stock")
	// ErrOrderInvalidTransition indicates the status change is not in the transition table.
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	// ErrOrderPaymentFailed indicates the payment provider rejected the charge.
	ErrOrderPaymentFailed = errors.New("order: payment failed")
	// ErrOrderRefundNotAllowed indicates the order is not a cancelled paid order.
	ErrOrderRefundNotAllowed = errors.New("order: refund not allowed")
	// ErrOrderConflict indicates a concurrent write collided.
	ErrOrderConflict = errors.New("order: conflict")

	// ErrBookingValidation signals the booking request failed validation.
	ErrBookingValidation = errors.New("booking: validation failed")
	// ErrBookingNotFound indicates the booking could not be located.
	ErrBookingNotFound = errors.New("booking: not found")
	// ErrBookingNoSeats indicates the group is larger than the available seats.
	ErrBookingNoSeats = errors.New("booking: not enough seats")
	// ErrBookingInvalidTransition indicates the status change is not in the transition table.
	ErrBookingInvalidTransition = errors.New("booking: invalid status transition")
	// ErrBookingCodeExhausted indicates every generated code collided.
	ErrBookingCodeExhausted = errors.New("booking: unable to allocate unique code")

	ErrNotificationNotFound   = errors.New("notification: not found")
	ErrNotificationValidation = errors.New("notification: validation failed")

	ErrCartValidation      = errors.New("cart: validation failed")
	ErrCartProductNotFound = errors.New("cart: product not found")

	ErrMessageValidation = errors.New("message: validation failed")

	ErrProductNotFound = errors.New("product: not found")
)

// ValidationError carries field level messages for a validation sentinel.
type ValidationError struct {
	Kind   error
	Fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, strings.Join(e.Fields, "; "))
}

// Unwrap exposes the sentinel so errors.Is keeps working.
func (e *ValidationError) Unwrap() error { return e.Kind }

// validation accumulates field messages.
type validation struct {
	kind   error
	fields []string
}

func newValidation(kind error) *validation {
	return &validation{kind: kind}
}

func (v *validation) addf(format string, args ...any) {
	v.fields = append(v.fields, fmt.Sprintf(format, args...))
}

func (v *validation) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Kind: v.kind, Fields: v.fields}
}

// ValidationFields returns the field messages carried by err, if any.
func ValidationFields(err error) []string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return append([]string(nil), validationErr.Fields...)
	}
	return nil
}

// mapRepositoryError classifies repository failures into the caller's sentinels.
func mapRepositoryError(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound() && notFound != nil:
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict() && conflict != nil:
			return fmt.Errorf("%w: %v", conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("repository unavailable: %w", err)
		}
	}
	return err
}
