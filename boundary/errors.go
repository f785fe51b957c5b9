package boundary

import (
	"errors"
	"fmt"
)

type (
	// ComponentError is derived from an error caught by a [Boundary], before
	// the real library has loaded. It carries the original message, renamed
	// to mark it as boundary-sourced, and the component stack as its trace.
	ComponentError struct {
		Message string
		Stack   string
	}

	// PanicError wraps a non-error value recovered from a panicking render.
	PanicError struct {
		Value any
	}

	causeError struct {
		err   error
		cause error
	}
)

var errNilCatch = errors.New(`boundary: caught a nil error`)

// Name identifies the error as boundary-sourced.
func (e *ComponentError) Name() string { return `React ErrorBoundary Error` }

func (e *ComponentError) Error() string {
	if e.Message == `` {
		return e.Name()
	}
	return e.Name() + `: ` + e.Message
}

func (e *PanicError) Error() string {
	return fmt.Sprintf(`boundary: render panic: %v`, e.Value)
}

// Unwrap returns the panic value, if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// WithCause links cause to err. The result has the same message as err,
// matches both via [errors.Is] and [errors.As], and exposes cause via a
// Cause method.
func WithCause(err, cause error) error {
	return &causeError{err: err, cause: cause}
}

func (e *causeError) Error() string   { return e.err.Error() }
func (e *causeError) Unwrap() []error { return []error{e.err, e.cause} }
func (e *causeError) Cause() error    { return e.cause }

// Cause returns the cause linked via [WithCause], or nil.
func Cause(err error) error {
	var c interface{ Cause() error }
	if errors.As(err, &c) {
		return c.Cause()
	}
	return nil
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r}
}
