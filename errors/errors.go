// Package errors defines the error taxonomy shared by every layer of tinyfs,
// from the block device up through the facade. Errors are sentinel values of
// type DiskoError so callers can use errors.Is against them, but they also
// carry enough context (via WithMessage/Wrap) to be useful on their own.
package errors

import (
	"fmt"
	"syscall"
)

// DriverError is the interface every error returned by a tinyfs package
// implements. It lets a caller attach context to a sentinel error without
// losing the ability to test for the sentinel with errors.Is.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
	Errno() syscall.Errno
}

// DiskoError is a sentinel error identified by its message text. The zero
// value is not useful; use the Err* constants defined in errno.go.
type DiskoError string

func (e DiskoError) Error() string {
	return string(e)
}

func (e DiskoError) WithMessage(message string) DriverError {
	return customDriverError{
		message:  fmt.Sprintf("%s: %s", e.Error(), message),
		sentinel: e,
	}
}

func (e DiskoError) Wrap(err error) DriverError {
	return customDriverError{
		message:  fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		sentinel: e,
		wrapped:  err,
	}
}

// Errno gives the POSIX errno code a gateway adapter should surface for this
// error kind. Error kinds with no entry in errnoByKind return EIO.
func (e DiskoError) Errno() syscall.Errno {
	if code, ok := errnoByKind[e]; ok {
		return code
	}
	return syscall.EIO
}

// customDriverError is what WithMessage/Wrap produce: a DiskoError plus
// additional context, still comparable to its sentinel via errors.Is/Unwrap.
type customDriverError struct {
	message  string
	sentinel DiskoError
	wrapped  error
}

func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:  fmt.Sprintf("%s: %s", e.message, message),
		sentinel: e.sentinel,
		wrapped:  e.wrapped,
	}
}

func (e customDriverError) Wrap(err error) DriverError {
	return customDriverError{
		message:  fmt.Sprintf("%s: %s", e.message, err.Error()),
		sentinel: e.sentinel,
		wrapped:  err,
	}
}

func (e customDriverError) Errno() syscall.Errno {
	return e.sentinel.Errno()
}

// Unwrap lets errors.Is(err, ErrNotFound) succeed for a message-wrapped error,
// and also exposes any error passed to Wrap.
func (e customDriverError) Unwrap() error {
	if e.wrapped != nil {
		return e.wrapped
	}
	return e.sentinel
}

// Is reports whether target is the sentinel this error was built from, so
// errors.Is against the sentinel also succeeds for an error produced by Wrap.
func (e customDriverError) Is(target error) bool {
	sentinel, ok := target.(DiskoError)
	return ok && sentinel == e.sentinel
}

// ToErrno converts any error produced by a tinyfs package into the negative
// errno value a gateway adapter's return convention expects. Errors that don't
// implement DriverError are treated as opaque I/O failures.
func ToErrno(err error) int {
	if err == nil {
		return 0
	}

	if driverErr, ok := err.(DriverError); ok {
		return -int(driverErr.Errno())
	}
	if unwrappable, ok := err.(interface{ Unwrap() error }); ok {
		if driverErr, ok := unwrappable.Unwrap().(DriverError); ok {
			return -int(driverErr.Errno())
		}
	}
	return -int(syscall.EIO)
}
