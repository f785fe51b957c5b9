// Package boundary implements a crash boundary: a render tree wrapper that
// catches failures of its descendants, reports them, and renders a fallback.
//
// Before the monitoring library has loaded, caught errors are reported
// through a [Reporter], normally a *lazysentry.Facade, which queues them.
// Once the library's own catch logic has been delivered to the boundary's
// [Delegate], every subsequent catch is handed to it instead, including for
// boundaries that already exist.
package boundary

import (
	"fmt"
	"sync"

	"github.com/joeycumines/go-lazysentry"
	"github.com/joeycumines/go-lazysentry/internal/callstack"
	"github.com/joeycumines/logiface"
)

type (
	// Reporter is the capture surface used before the library has loaded.
	// It is implemented by *lazysentry.Facade.
	Reporter interface {
		CaptureException(err error, capture *lazysentry.CaptureContext) lazysentry.EventID
	}

	// FallbackProps is passed to [Props.FallbackFunc].
	FallbackProps struct {
		Err            error
		ResetError     func()
		ComponentStack string
		EventID        lazysentry.EventID
	}

	// Props configures the render behavior and callbacks of a [Boundary].
	Props struct {
		// Fallback is rendered while an error is held, unless FallbackFunc is
		// set.
		Fallback Node

		// FallbackFunc produces the node rendered while an error is held.
		FallbackFunc func(props FallbackProps) Node

		// Children is rendered while no error is held, unless ChildrenFunc is
		// set.
		Children Node

		// ChildrenFunc produces the node rendered while no error is held.
		// A panic is caught by the boundary.
		ChildrenFunc func() Node

		OnMount func()

		OnUnmount func(err error, componentStack string, id lazysentry.EventID)

		// OnReset is called by [Boundary.Reset], with the state being cleared.
		OnReset func(err error, componentStack string, id lazysentry.EventID)
	}

	// Config configures the collaborators of a [Boundary].
	Config struct {
		// Reporter defaults to lazysentry.Default().
		Reporter Reporter

		// Delegate defaults to [DefaultDelegate].
		Delegate *Delegate

		Logger *logiface.Logger[logiface.Event]
	}

	// Boundary is a crash boundary instance. It is safe for concurrent use,
	// though callbacks and render functions are never called with any lock
	// held. Create instances with [New].
	Boundary struct {
		err            error
		props          Props
		delegate       *Delegate
		preload        lazysentry.CatchHandler
		logger         *logiface.Logger[logiface.Event]
		componentStack string
		id             lazysentry.EventID
		mu             sync.Mutex
	}
)

var _ lazysentry.BoundaryTarget = (*Boundary)(nil)

// New returns a boundary holding no error.
func New(cfg Config, props Props) *Boundary {
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = lazysentry.Default()
	}
	delegate := cfg.Delegate
	if delegate == nil {
		delegate = DefaultDelegate()
	}
	return &Boundary{
		props:    props,
		delegate: delegate,
		preload:  PreloadHandler(reporter),
		logger:   cfg.Logger,
	}
}

// PreloadHandler returns the catch logic used until the real library's has
// been delivered. It reports err, linked via [WithCause] to a derived
// [*ComponentError], through reporter, with the component stack attached as
// the "react" context, then sets the target's state, without an event ID.
func PreloadHandler(reporter Reporter) lazysentry.CatchHandler {
	return lazysentry.CatchHandlerFunc(func(target lazysentry.BoundaryTarget, err error, info lazysentry.ErrorInfo) {
		defer target.SetCaught(err, info.ComponentStack, ``)
		componentErr := &ComponentError{Message: err.Error(), Stack: info.ComponentStack}
		reporter.CaptureException(WithCause(err, componentErr), &lazysentry.CaptureContext{
			Contexts: map[string]map[string]any{
				`react`: {`componentStack`: info.ComponentStack},
			},
		})
	})
}

// State returns the held error, component stack, and event ID. A nil error
// means no error is held.
func (x *Boundary) State() (err error, componentStack string, id lazysentry.EventID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err, x.componentStack, x.id
}

// SetCaught implements [lazysentry.BoundaryTarget].
func (x *Boundary) SetCaught(err error, componentStack string, id lazysentry.EventID) {
	x.mu.Lock()
	x.err, x.componentStack, x.id = err, componentStack, id
	x.mu.Unlock()
}

// Mount calls [Props.OnMount], if set.
func (x *Boundary) Mount() {
	if x.props.OnMount != nil {
		x.props.OnMount()
	}
}

// Unmount calls [Props.OnUnmount], if set, with the current state.
func (x *Boundary) Unmount() {
	if x.props.OnUnmount != nil {
		x.props.OnUnmount(x.State())
	}
}

// Reset calls [Props.OnReset], if set, with the current state, then clears
// it.
func (x *Boundary) Reset() {
	err, componentStack, id := x.State()
	if x.props.OnReset != nil {
		x.props.OnReset(err, componentStack, id)
	}
	x.SetCaught(nil, ``, ``)
}

// Catch handles an error thrown by a descendant. It delegates to the real
// library's catch logic, if delivered, otherwise to [PreloadHandler]. Panics
// are logged, and never propagate.
func (x *Boundary) Catch(err error, info lazysentry.ErrorInfo) {
	if err == nil {
		err = errNilCatch
	}
	handler := x.delegate.Handler()
	if handler == nil {
		handler = x.preload
	}
	defer func() {
		if r := recover(); r != nil {
			x.logger.Err().
				Err(err).
				Str(`panic`, fmt.Sprint(r)).
				Log(`crash boundary catch handler panicked`)
		}
	}()
	handler.HandleCatch(x, err, info)
}

// Render returns the node for the current state. While no error is held,
// that is the children, and a panic from [Props.ChildrenFunc] is caught,
// with the panicking goroutine's stack as the component stack, after which
// the fallback is rendered instead. While an error is held, it is the
// fallback, or nil if there is no valid fallback.
func (x *Boundary) Render() Node {
	if err, _, _ := x.State(); err == nil {
		if node, ok := x.renderChildren(); ok {
			return node
		}
	}
	return x.renderFallback()
}

func (x *Boundary) renderChildren() (node Node, ok bool) {
	if x.props.ChildrenFunc == nil {
		return x.props.Children, true
	}
	defer func() {
		if r := recover(); r != nil {
			stack := callstack.PanicStack()
			x.Catch(panicToError(r), lazysentry.ErrorInfo{ComponentStack: stack})
			node, ok = nil, false
		}
	}()
	return x.props.ChildrenFunc(), true
}

func (x *Boundary) renderFallback() Node {
	err, componentStack, id := x.State()
	if err == nil {
		return nil
	}
	var node Node
	switch {
	case x.props.FallbackFunc != nil:
		node = x.props.FallbackFunc(FallbackProps{
			Err:            err,
			ComponentStack: componentStack,
			ResetError:     x.Reset,
			EventID:        id,
		})
	case x.props.Fallback != nil:
		node = x.props.Fallback
	default:
		return nil
	}
	if IsValidNode(node) {
		return node
	}
	x.logger.Warning().Log(`fallback did not produce a valid node`)
	return nil
}
