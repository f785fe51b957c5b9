package lazysentry

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-lazysentry/internal/callstack"
)

type (
	// ErrorEvent describes an uncaught error, as delivered to the
	// uncaught-error handler slot.
	ErrorEvent struct {
		// Err is the error value, if any.
		Err     error
		Message string
		Source  string
		Line    int
		Column  int
	}

	// RejectionEvent describes an unhandled promise rejection, as delivered to
	// the unhandled-rejection handler slot.
	RejectionEvent struct {
		Reason  any
		Promise any
	}

	// ErrorHandler occupies the uncaught-error slot of a [HandlerRegistry].
	ErrorHandler func(event ErrorEvent)

	// RejectionHandler occupies the unhandled-rejection slot of a
	// [HandlerRegistry].
	RejectionHandler func(event RejectionEvent)

	// HandlerRegistry models the two process-wide handler slots, for uncaught
	// errors and for unhandled rejections. Events are delivered by calling
	// whatever handler occupies the relevant slot at the time.
	//
	// The zero value is ready to use. Methods are safe for concurrent use,
	// and handlers are always invoked without any lock held.
	HandlerRegistry struct {
		onError     ErrorHandler
		onRejection RejectionHandler
		// heldError and heldRejection, if set, receive dispatched events in
		// place of the slots, see hold
		heldError     ErrorHandler
		heldRejection RejectionHandler
		mu            sync.Mutex
	}

	// HandlerSnapshot is the content of both slots at a point in time, see
	// [HandlerRegistry.Snapshot].
	HandlerSnapshot struct {
		OnError              ErrorHandler
		OnUnhandledRejection RejectionHandler
	}
)

var globalHandlers HandlerRegistry

// GlobalHandlers returns the process-wide registry, used by default.
func GlobalHandlers() *HandlerRegistry { return &globalHandlers }

// NewHandlerRegistry returns a new, empty, registry.
func NewHandlerRegistry() *HandlerRegistry { return new(HandlerRegistry) }

// OnError returns the handler in the uncaught-error slot, which may be nil.
func (x *HandlerRegistry) OnError() ErrorHandler {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.onError
}

// SetOnError replaces the handler in the uncaught-error slot.
func (x *HandlerRegistry) SetOnError(handler ErrorHandler) {
	x.mu.Lock()
	x.onError = handler
	x.mu.Unlock()
}

// OnUnhandledRejection returns the handler in the unhandled-rejection slot,
// which may be nil.
func (x *HandlerRegistry) OnUnhandledRejection() RejectionHandler {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.onRejection
}

// SetOnUnhandledRejection replaces the handler in the unhandled-rejection
// slot.
func (x *HandlerRegistry) SetOnUnhandledRejection(handler RejectionHandler) {
	x.mu.Lock()
	x.onRejection = handler
	x.mu.Unlock()
}

// Snapshot captures both slots.
func (x *HandlerRegistry) Snapshot() HandlerSnapshot {
	x.mu.Lock()
	defer x.mu.Unlock()
	return HandlerSnapshot{
		OnError:              x.onError,
		OnUnhandledRejection: x.onRejection,
	}
}

// Override replaces both slots, returning what was there before.
func (x *HandlerRegistry) Override(onError ErrorHandler, onRejection RejectionHandler) HandlerSnapshot {
	x.mu.Lock()
	defer x.mu.Unlock()
	prev := HandlerSnapshot{
		OnError:              x.onError,
		OnUnhandledRejection: x.onRejection,
	}
	x.onError = onError
	x.onRejection = onRejection
	return prev
}

// Restore sets both slots from a snapshot.
func (x *HandlerRegistry) Restore(snapshot HandlerSnapshot) {
	x.Override(snapshot.OnError, snapshot.OnUnhandledRejection)
}

// DispatchError delivers event to the current uncaught-error handler, if any.
func (x *HandlerRegistry) DispatchError(event ErrorEvent) {
	x.mu.Lock()
	h := x.onError
	if x.heldError != nil {
		h = x.heldError
	}
	x.mu.Unlock()
	if h != nil {
		h(event)
	}
}

// DispatchRejection delivers event to the current unhandled-rejection
// handler, if any.
func (x *HandlerRegistry) DispatchRejection(event RejectionEvent) {
	x.mu.Lock()
	h := x.onRejection
	if x.heldRejection != nil {
		h = x.heldRejection
	}
	x.mu.Unlock()
	if h != nil {
		h(event)
	}
}

// hold diverts dispatched events to the given handlers, until release,
// without touching the slots. Reads and writes of the slots are unaffected,
// so code that chains the slot contents sees the real handlers.
func (x *HandlerRegistry) hold(onError ErrorHandler, onRejection RejectionHandler) {
	x.mu.Lock()
	x.heldError, x.heldRejection = onError, onRejection
	x.mu.Unlock()
}

func (x *HandlerRegistry) release() {
	x.hold(nil, nil)
}

// dispatchSlotError is DispatchError, ignoring any hold.
func (x *HandlerRegistry) dispatchSlotError(event ErrorEvent) {
	if h := x.OnError(); h != nil {
		h(event)
	}
}

// dispatchSlotRejection is DispatchRejection, ignoring any hold.
func (x *HandlerRegistry) dispatchSlotRejection(event RejectionEvent) {
	if h := x.OnUnhandledRejection(); h != nil {
		h(event)
	}
}

// ReportRejection dispatches a [RejectionEvent] for reason. Its signature
// matches eventloop.RejectionHandler, so it may be used as the unhandled
// rejection callback of an event loop's JS adapter.
func (x *HandlerRegistry) ReportRejection(reason any) {
	x.DispatchRejection(RejectionEvent{Reason: reason})
}

// Recover converts a panic into an [ErrorEvent], dispatched to the current
// uncaught-error handler. It must be called directly by a deferred
// statement, e.g. `defer handlers.Recover()`, and absorbs the panic.
func (x *HandlerRegistry) Recover() {
	r := recover()
	if r == nil {
		return
	}
	event := ErrorEvent{Message: fmt.Sprint(r)}
	if err, ok := r.(error); ok {
		event.Err = err
	} else {
		event.Err = fmt.Errorf(`panic: %v`, r)
	}
	if frame, ok := callstack.PanicFrame(); ok {
		event.Source = frame.File
		event.Line = frame.Line
	}
	x.DispatchError(event)
}
