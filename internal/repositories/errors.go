package repositories

import (
	"errors"
	"fmt"
)

// StockErrorCode enumerates failure reasons for stock checks.
type StockErrorCode string

const (
	// StockErrorOutOfStock indicates the requested quantity exceeds the remaining stock.
	StockErrorOutOfStock StockErrorCode = "out_of_stock"
	// StockErrorProductNotFound indicates the product document does not exist.
	StockErrorProductNotFound StockErrorCode = "product_not_found"
	// StockErrorProductInactive indicates the product is no longer sold.
	StockErrorProductInactive StockErrorCode = "product_inactive"
)

// StockError reports why a product line could not be fulfilled.
type StockError struct {
	Op        string
	Code      StockErrorCode
	ProductID string
	Requested int
	Available int
}

// Error implements the error interface.
func (e *StockError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s for product %s (requested %d, available %d)", e.Code, e.ProductID, e.Requested, e.Available)
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

// NewStockError constructs a typed stock error.
func NewStockError(code StockErrorCode, productID string, requested, available int) *StockError {
	return &StockError{Code: code, ProductID: productID, Requested: requested, Available: available}
}

// AsStockError extracts a StockError from err.
func AsStockError(err error) (*StockError, bool) {
	var stockErr *StockError
	if errors.As(err, &stockErr) {
		return stockErr, true
	}
	return nil, false
}

// Error is a RepositoryError raised by non-Firestore backends.
type Error struct {
	op          string
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.op != "" {
		return e.op + ": " + e.msg
	}
	return e.msg
}

func (e *Error) IsNotFound() bool    { return e.notFound }
func (e *Error) IsConflict() bool    { return e.conflict }
func (e *Error) IsUnavailable() bool { return e.unavailable }

// NewNotFoundError reports a missing record.
func NewNotFoundError(op, format string, args ...any) *Error {
	return &Error{op: op, msg: fmt.Sprintf(format, args...), notFound: true}
}

// NewConflictError reports a uniqueness or precondition violation.
func NewConflictError(op, format string, args ...any) *Error {
	return &Error{op: op, msg: fmt.Sprintf(format, args...), conflict: true}
}

// IsNotFound reports whether err is a RepositoryError classified as not found.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err is a RepositoryError classified as a conflict.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err is a RepositoryError classified as unavailable.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
