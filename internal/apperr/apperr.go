package apperr

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals a lookup of an unknown identifier.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate signals a storage-level uniqueness violation.
	ErrDuplicate = errors.New("duplicate record")
)

// ValidationError reports caller-supplied data failing structural rules.
// It is surfaced synchronously and never retried.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError with the given message.
func Validation(msg string) error {
	return ValidationError{Msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

// Unrecoverable wrapper to signal reject-without-requeue on the broker.
type unrecoverableError struct {
	err error
}

// Error returns the wrapped error's message.
func (e unrecoverableError) Error() string {
	return e.err.Error()
}

// Unwrap returns the wrapped error.
func (e unrecoverableError) Unwrap() error {
	return e.err
}

// Unrecoverable marks an error as an infrastructure fault that must be
// dead-lettered rather than redelivered.
func Unrecoverable(err error) error {
	if err == nil {
		return nil
	}

	return unrecoverableError{err: err}
}

// IsUnrecoverable returns true if the error is marked as unrecoverable.
func IsUnrecoverable(err error) bool {
	var u unrecoverableError
	return errors.As(err, &u)
}

// MarkUnrecoverable classifies a fault raised while handling a delivery.
// Context cancellation passes through unmarked: an interrupted delivery is
// requeued and retried after restart, everything else dead-letters.
func MarkUnrecoverable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return Unrecoverable(err)
}
