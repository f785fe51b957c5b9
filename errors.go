package lazysentry

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned by [Facade.Init] if it has already
	// been called, regardless of the outcome of that call.
	ErrAlreadyInitialized = errors.New(`lazysentry: already initialized`)

	// ErrNoLoader is returned by [Facade.Init] if the facade was constructed
	// without [WithLoader].
	ErrNoLoader = errors.New(`lazysentry: no loader configured`)
)

// LoadError indicates the real library failed to load or initialize. The
// facade remains in queuing mode, see [Facade.Err].
type LoadError struct {
	Err error
	// Stage is one of "load", "submit", "init", or "replay".
	Stage string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf(`lazysentry: %s failed: %v`, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PanicError wraps a value recovered from a panicking [Loader] or
// [Library.Init].
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf(`lazysentry: recovered panic: %v`, e.Value)
}

// Unwrap returns the panic value, if it is an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
