package lazysentry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/joeycumines/logiface"
)

var errGoexit = errors.New(`lazysentry: goroutine exited via runtime.Goexit`)

// Facade is the always-available telemetry call surface, standing in for
// the real library until it has loaded.
//
// Until load resolution, every operation is queued as a replay thunk, and
// the capture operations return an empty [EventID]. [Facade.Init] starts the
// load, and captures global handler events in the meantime. On resolution
// the queued calls are replayed against the real [Module], in order, and
// subsequent calls go to it directly.
//
// A Facade is safe for concurrent use. Create instances with [New].
type Facade struct {
	// impl is the current implementation, either pendingOperations or the
	// module, guarded by mu
	impl      Operations
	module    Module
	loader    Loader
	loop      Loop
	handlers  *HandlerRegistry
	logger    *logiface.Logger[logiface.Event]
	err       error
	done      chan struct{}
	receivers []BoundaryReceiver
	queue     []func(m Module)
	// errorQueue and rejectionQueue are created by Init
	errorQueue     []ErrorEvent
	rejectionQueue []RejectionEvent
	snapshot       HandlerSnapshot
	mu             sync.Mutex
	state          State
	// drained is set when the module is bound, once all three queues have
	// been observed empty, and never written again
	drained bool
}

// pendingOperations is the queueing implementation of [Operations].
type pendingOperations struct {
	f *Facade
}

var (
	_ Operations = (*Facade)(nil)
	_ Operations = pendingOperations{}
)

// New creates a new facade, in queuing mode. New panics if any option fails
// validation (invalid options are programming errors).
func New(opts ...Option) *Facade {
	cfg, err := resolveOptions(opts)
	if err != nil {
		panic(fmt.Sprintf(`lazysentry: %s`, err))
	}
	x := &Facade{
		loader:    cfg.loader,
		loop:      cfg.loop,
		handlers:  cfg.handlers,
		logger:    cfg.logger,
		receivers: cfg.receivers,
		done:      make(chan struct{}),
	}
	x.impl = pendingOperations{f: x}
	return x
}

// Init starts loading the real library, returning immediately. It may be
// called at most once: subsequent calls return [ErrAlreadyInitialized],
// including after a failed load.
//
// Until load resolution, both slots of the configured [HandlerRegistry] are
// replaced with handlers that only queue events. On resolution, in order:
// the original handlers are restored, the library is initialized with
// options, its crash boundary logic is delivered to each boundary receiver,
// then the queued calls, error events, and rejection events are replayed,
// each queue in arrival order, and the module is bound. Replayed events are
// dispatched through whatever handlers occupy the slots after
// initialization. Events dispatched through the registry keep being queued
// until replay has finished, so they are never delivered ahead of earlier
// ones.
//
// If loading fails, the facade remains in queuing mode, and the capturing
// handlers remain installed, see [Facade.Err].
func (x *Facade) Init(options Options) error {
	x.mu.Lock()
	if x.loader == nil {
		x.mu.Unlock()
		return ErrNoLoader
	}
	if x.state != StateIdle {
		x.mu.Unlock()
		return ErrAlreadyInitialized
	}
	x.state = StateLoading
	x.errorQueue = []ErrorEvent{}
	x.rejectionQueue = []RejectionEvent{}
	x.snapshot = x.handlers.Override(x.captureError, x.captureRejection)
	x.mu.Unlock()

	x.logger.Debug().Log(`monitoring library load started`)

	go x.load(options)

	return nil
}

// State returns the current load state.
func (x *Facade) State() State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

// Err returns a *[LoadError] if loading failed, otherwise nil.
func (x *Facade) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.err
}

// Done returns a channel that is closed once load resolution has completed,
// including replay. It is never closed if loading fails.
func (x *Facade) Done() <-chan struct{} { return x.done }

// Pending returns the number of calls currently queued.
func (x *Facade) Pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.queue)
}

func (x *Facade) current() Operations {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.impl
}

// AddBreadcrumb records a breadcrumb.
func (x *Facade) AddBreadcrumb(breadcrumb *Breadcrumb, hint BreadcrumbHint) {
	x.current().AddBreadcrumb(breadcrumb, hint)
}

// CaptureMessage captures a message event. Returns "" before load.
func (x *Facade) CaptureMessage(message string, capture *CaptureContext) EventID {
	return x.current().CaptureMessage(message, capture)
}

// CaptureException captures an error event. Returns "" before load.
func (x *Facade) CaptureException(err error, capture *CaptureContext) EventID {
	return x.current().CaptureException(err, capture)
}

// CaptureEvent captures a custom event. Returns "" before load.
func (x *Facade) CaptureEvent(event *Event, hint *EventHint) EventID {
	return x.current().CaptureEvent(event, hint)
}

// ConfigureScope modifies the current scope.
func (x *Facade) ConfigureScope(fn func(scope Scope)) {
	x.current().ConfigureScope(fn)
}

// ShowReportDialog requests the user feedback dialog.
func (x *Facade) ShowReportDialog(options *ReportDialogOptions) {
	x.current().ShowReportDialog(options)
}

// WithScope runs fn with a temporary scope.
func (x *Facade) WithScope(fn func(scope Scope)) {
	x.current().WithScope(fn)
}

// enqueue appends thunk to the call queue, unless the module was bound after
// the caller observed the queueing implementation, in which case the module
// is returned, and the caller must call it directly.
func (x *Facade) enqueue(thunk func(m Module)) Module {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.module != nil {
		return x.module
	}
	x.queue = append(x.queue, thunk)
	return nil
}

func (x *Facade) captureError(event ErrorEvent) {
	x.mu.Lock()
	if x.drained {
		// dispatched via a handler reference read before restoration
		x.mu.Unlock()
		x.handlers.dispatchSlotError(event)
		return
	}
	x.errorQueue = append(x.errorQueue, event)
	x.mu.Unlock()
}

func (x *Facade) captureRejection(event RejectionEvent) {
	x.mu.Lock()
	if x.drained {
		x.mu.Unlock()
		x.handlers.dispatchSlotRejection(event)
		return
	}
	x.rejectionQueue = append(x.rejectionQueue, event)
	x.mu.Unlock()
}

func (x *Facade) load(options Options) {
	lib, err := x.loadLibrary()
	if err != nil {
		x.fail(`load`, err)
		return
	}

	if x.loop == nil {
		x.resolve(lib, options)
		return
	}

	if err := x.loop.SubmitInternal(func() {
		x.resolve(lib, options)
	}); err != nil {
		x.fail(`submit`, err)
	}
}

func (x *Facade) loadLibrary() (lib Library, err error) {
	// distinguishes normal return from Goexit
	var completed bool
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r}
		} else if !completed {
			x.fail(`load`, errGoexit)
		}
	}()
	lib, err = x.loader.Load(context.Background())
	completed = true
	if err == nil && lib == nil {
		err = errors.New(`lazysentry: loader returned a nil library`)
	}
	return
}

// initLibrary initializes the library, and retrieves the module's crash
// boundary logic, converting panics into errors.
func (x *Facade) initLibrary(lib Library, options Options) (module Module, handler CatchHandler, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = PanicError{Value: r}
		}
	}()
	module, err = lib.Init(options)
	if err == nil && module == nil {
		err = errors.New(`lazysentry: library init returned a nil module`)
	}
	if err == nil {
		handler = module.ErrorBoundary()
	}
	return
}

// resolve performs load resolution, see [Facade.Init].
func (x *Facade) resolve(lib Library, options Options) {
	stage := `init`
	var finished bool
	defer func() {
		if !finished {
			// unwinding via runtime.Goexit, the module was never bound
			x.abort(stage, errGoexit)
		}
	}()

	// the library's own init may install handlers, chaining the originals,
	// while dispatched events are still queued
	x.handlers.hold(x.captureError, x.captureRejection)
	x.handlers.Restore(x.snapshot)

	module, handler, err := x.initLibrary(lib, options)
	if err != nil {
		finished = true
		x.abort(stage, err)
		return
	}
	stage = `replay`

	if handler != nil {
		for _, receiver := range x.receivers {
			x.safeCall(`deliver boundary`, func() { receiver.Deliver(handler) })
		}
	}

	// anything queued while replaying is replayed in a later pass, and the
	// module is bound only once every queue is observed empty, preserving
	// arrival order
	var calls, errorCount, rejectionCount int
	for {
		x.mu.Lock()
		queue, errorQueue, rejectionQueue := x.queue, x.errorQueue, x.rejectionQueue
		x.queue, x.errorQueue, x.rejectionQueue = nil, nil, nil
		if len(queue) == 0 && len(errorQueue) == 0 && len(rejectionQueue) == 0 {
			x.module = module
			x.impl = module
			x.state = StateLoaded
			x.snapshot = HandlerSnapshot{}
			x.drained = true
			x.handlers.release()
			x.mu.Unlock()
			break
		}
		x.mu.Unlock()

		calls += len(queue)
		for _, thunk := range queue {
			x.safeCall(`replay call`, func() { thunk(module) })
		}
		errorCount += len(errorQueue)
		for _, event := range errorQueue {
			x.safeCall(`replay error`, func() { x.handlers.dispatchSlotError(event) })
		}
		rejectionCount += len(rejectionQueue)
		for _, event := range rejectionQueue {
			x.safeCall(`replay rejection`, func() { x.handlers.dispatchSlotRejection(event) })
		}
	}
	finished = true

	x.logger.Info().
		Int(`calls`, calls).
		Int(`errors`, errorCount).
		Int(`rejections`, rejectionCount).
		Log(`monitoring library loaded`)

	close(x.done)
}

// abort puts the capturing handlers back in place, then fails.
func (x *Facade) abort(stage string, err error) {
	x.handlers.Override(x.captureError, x.captureRejection)
	x.handlers.release()
	x.fail(stage, err)
}

func (x *Facade) fail(stage string, err error) {
	err = &LoadError{Stage: stage, Err: err}
	x.mu.Lock()
	x.state = StateFailed
	x.err = err
	x.mu.Unlock()
	x.logger.Err().
		Err(err).
		Str(`stage`, stage).
		Log(`monitoring library failed to load`)
}

// safeCall runs fn, absorbing and logging any panic.
func (x *Facade) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Err().
				Str(`during`, what).
				Str(`panic`, fmt.Sprint(r)).
				Log(`recovered panic`)
		}
	}()
	fn()
}

func (x pendingOperations) AddBreadcrumb(breadcrumb *Breadcrumb, hint BreadcrumbHint) {
	if m := x.f.enqueue(func(m Module) { m.AddBreadcrumb(breadcrumb, hint) }); m != nil {
		m.AddBreadcrumb(breadcrumb, hint)
	}
}

func (x pendingOperations) CaptureMessage(message string, capture *CaptureContext) EventID {
	if m := x.f.enqueue(func(m Module) { m.CaptureMessage(message, capture) }); m != nil {
		return m.CaptureMessage(message, capture)
	}
	return ``
}

func (x pendingOperations) CaptureException(err error, capture *CaptureContext) EventID {
	if m := x.f.enqueue(func(m Module) { m.CaptureException(err, capture) }); m != nil {
		return m.CaptureException(err, capture)
	}
	return ``
}

func (x pendingOperations) CaptureEvent(event *Event, hint *EventHint) EventID {
	if m := x.f.enqueue(func(m Module) { m.CaptureEvent(event, hint) }); m != nil {
		return m.CaptureEvent(event, hint)
	}
	return ``
}

func (x pendingOperations) ConfigureScope(fn func(scope Scope)) {
	if m := x.f.enqueue(func(m Module) { m.ConfigureScope(fn) }); m != nil {
		m.ConfigureScope(fn)
	}
}

func (x pendingOperations) ShowReportDialog(options *ReportDialogOptions) {
	if m := x.f.enqueue(func(m Module) { m.ShowReportDialog(options) }); m != nil {
		m.ShowReportDialog(options)
	}
}

func (x pendingOperations) WithScope(fn func(scope Scope)) {
	if m := x.f.enqueue(func(m Module) { m.WithScope(fn) }); m != nil {
		m.WithScope(fn)
	}
}
