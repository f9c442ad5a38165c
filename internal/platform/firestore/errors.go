package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type errorKind uint8

const (
	kindOther errorKind = iota
	kindNotFound
	kindAlreadyExists
	kindConflict
	kindUnavailable
)

var kindByCode = map[codes.Code]errorKind{
	codes.NotFound:           kindNotFound,
	codes.AlreadyExists:      kindAlreadyExists,
	codes.FailedPrecondition: kindConflict,
	codes.Aborted:            kindConflict,
	codes.OutOfRange:         kindConflict,
	codes.Unavailable:        kindUnavailable,
	codes.ResourceExhausted:  kindUnavailable,
	codes.Internal:           kindUnavailable,
	codes.DeadlineExceeded:   kindUnavailable,
}

// Error classifies a Firestore failure for the service layer. It satisfies
// repositories.RepositoryError. AlreadyExists counts as a conflict.
type Error struct {
	Op   string
	Code codes.Code
	kind errorKind
	err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.err.Error()
	}
	return e.Op + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) IsNotFound() bool      { return e != nil && e.kind == kindNotFound }
func (e *Error) IsAlreadyExists() bool { return e != nil && e.kind == kindAlreadyExists }
func (e *Error) IsUnavailable() bool   { return e != nil && e.kind == kindUnavailable }

func (e *Error) IsConflict() bool {
	return e != nil && (e.kind == kindConflict || e.kind == kindAlreadyExists)
}

// WrapError labels err with op and its classification. Cancellation is
// returned as the plain context error so callers can compare with errors.Is.
// Errors already wrapped keep their first label.
func WrapError(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code := status.Code(err)
	switch code {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}

	var wrapped *Error
	if errors.As(err, &wrapped) {
		if wrapped.Op == "" {
			wrapped.Op = op
		}
		return wrapped
	}
	return &Error{Op: op, Code: code, kind: kindByCode[code], err: err}
}

func IsNotFound(err error) bool {
	return classify(err) == kindNotFound
}

func IsAlreadyExists(err error) bool {
	return classify(err) == kindAlreadyExists
}

func classify(err error) errorKind {
	if err == nil {
		return kindOther
	}
	var wrapped *Error
	if errors.As(err, &wrapped) {
		return wrapped.kind
	}
	return kindByCode[status.Code(err)]
}
