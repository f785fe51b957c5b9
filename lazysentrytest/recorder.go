// Package lazysentrytest provides an in-memory monitoring library, for
// testing code that uses the lazysentry facade.
package lazysentrytest

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/joeycumines/go-lazysentry"
)

// Operation names, as recorded in [Call.Op].
const (
	OpAddBreadcrumb        = `AddBreadcrumb`
	OpCaptureMessage       = `CaptureMessage`
	OpCaptureException     = `CaptureException`
	OpCaptureEvent         = `CaptureEvent`
	OpConfigureScope       = `ConfigureScope`
	OpShowReportDialog     = `ShowReportDialog`
	OpWithScope            = `WithScope`
	OpBoundaryCatch        = `boundary.catch`
	OpOnError              = `onerror`
	OpOnUnhandledRejection = `onunhandledrejection`
)

type (
	// Call is a single recorded call, with its arguments, in order.
	// Capture operations have the returned [lazysentry.EventID] appended.
	Call struct {
		Op   string
		Args []any
	}

	// Recorder is a [lazysentry.Loader], [lazysentry.Library], and
	// [lazysentry.Module], which records every call it receives.
	Recorder struct {
		gate        <-chan struct{}
		loadErr     error
		initErr     error
		handlers    *lazysentry.HandlerRegistry
		scope       *Scope
		calls       []Call
		initOptions []lazysentry.Options
		mu          sync.Mutex
		noBoundary  bool
	}

	// Option configures a [Recorder].
	Option func(r *Recorder)

	// Scope is a recording [lazysentry.Scope].
	Scope struct {
		Tags     map[string]string
		Extra    map[string]any
		Contexts map[string]map[string]any
		User     lazysentry.User
		Level    lazysentry.Level
	}
)

var (
	_ lazysentry.Loader  = (*Recorder)(nil)
	_ lazysentry.Library = (*Recorder)(nil)
	_ lazysentry.Module  = (*Recorder)(nil)
	_ lazysentry.Scope   = (*Scope)(nil)
)

// WithLoadGate blocks [Recorder.Load] until gate is closed (or the context
// is done).
func WithLoadGate(gate <-chan struct{}) Option {
	return func(r *Recorder) { r.gate = gate }
}

// WithLoadError makes [Recorder.Load] fail with err.
func WithLoadError(err error) Option {
	return func(r *Recorder) { r.loadErr = err }
}

// WithInitError makes [Recorder.Init] fail with err.
func WithInitError(err error) Option {
	return func(r *Recorder) { r.initErr = err }
}

// WithInstallHandlers makes [Recorder.Init] install handlers into registry,
// which record [OpOnError] and [OpOnUnhandledRejection] calls, then chain to
// the handlers they replaced.
func WithInstallHandlers(registry *lazysentry.HandlerRegistry) Option {
	return func(r *Recorder) { r.handlers = registry }
}

// WithoutBoundary makes [Recorder.ErrorBoundary] return nil.
func WithoutBoundary() Option {
	return func(r *Recorder) { r.noBoundary = true }
}

// NewRecorder returns a new [Recorder].
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{scope: newScope()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load implements [lazysentry.Loader], returning the receiver.
func (x *Recorder) Load(ctx context.Context) (lazysentry.Library, error) {
	if x.gate != nil {
		select {
		case <-x.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if x.loadErr != nil {
		return nil, x.loadErr
	}
	return x, nil
}

// Init implements [lazysentry.Library], returning the receiver.
func (x *Recorder) Init(options lazysentry.Options) (lazysentry.Module, error) {
	x.mu.Lock()
	x.initOptions = append(x.initOptions, options)
	x.mu.Unlock()
	if x.initErr != nil {
		return nil, x.initErr
	}
	if x.handlers != nil {
		prevError, prevRejection := x.handlers.OnError(), x.handlers.OnUnhandledRejection()
		x.handlers.Override(
			func(event lazysentry.ErrorEvent) {
				x.record(OpOnError, event)
				if prevError != nil {
					prevError(event)
				}
			},
			func(event lazysentry.RejectionEvent) {
				x.record(OpOnUnhandledRejection, event)
				if prevRejection != nil {
					prevRejection(event)
				}
			},
		)
	}
	return x, nil
}

// InitOptions returns the options passed to each [Recorder.Init] call.
func (x *Recorder) InitOptions() []lazysentry.Options {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]lazysentry.Options(nil), x.initOptions...)
}

// Calls returns a copy of every recorded call, in order.
func (x *Recorder) Calls() []Call {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]Call(nil), x.calls...)
}

// Ops returns the [Call.Op] of every recorded call, in order.
func (x *Recorder) Ops() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	ops := make([]string, len(x.calls))
	for i, c := range x.calls {
		ops[i] = c.Op
	}
	return ops
}

// Scope returns a snapshot of the scope, as modified by ConfigureScope.
func (x *Recorder) Scope() Scope {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.scope.clone()
}

func (x *Recorder) record(op string, args ...any) {
	x.mu.Lock()
	x.calls = append(x.calls, Call{Op: op, Args: args})
	x.mu.Unlock()
}

func (x *Recorder) recordCapture(op string, args ...any) lazysentry.EventID {
	id := lazysentry.EventID(uuid.NewString())
	x.record(op, append(args, id)...)
	return id
}

func (x *Recorder) AddBreadcrumb(breadcrumb *lazysentry.Breadcrumb, hint lazysentry.BreadcrumbHint) {
	x.record(OpAddBreadcrumb, breadcrumb, hint)
}

func (x *Recorder) CaptureMessage(message string, capture *lazysentry.CaptureContext) lazysentry.EventID {
	return x.recordCapture(OpCaptureMessage, message, capture)
}

func (x *Recorder) CaptureException(err error, capture *lazysentry.CaptureContext) lazysentry.EventID {
	return x.recordCapture(OpCaptureException, err, capture)
}

func (x *Recorder) CaptureEvent(event *lazysentry.Event, hint *lazysentry.EventHint) lazysentry.EventID {
	return x.recordCapture(OpCaptureEvent, event, hint)
}

// ConfigureScope records the call, then runs fn with the recorder locked,
// so fn must not call the recorder.
func (x *Recorder) ConfigureScope(fn func(scope lazysentry.Scope)) {
	x.record(OpConfigureScope)
	x.mu.Lock()
	defer x.mu.Unlock()
	fn(x.scope)
}

func (x *Recorder) ShowReportDialog(options *lazysentry.ReportDialogOptions) {
	x.record(OpShowReportDialog, options)
}

func (x *Recorder) WithScope(fn func(scope lazysentry.Scope)) {
	x.record(OpWithScope)
	x.mu.Lock()
	scope := x.scope.clone()
	x.mu.Unlock()
	fn(&scope)
}

// ErrorBoundary implements [lazysentry.Module]. The returned handler
// records an [OpBoundaryCatch] call with the error, the error info, and a
// new ID, then sets the target's state.
func (x *Recorder) ErrorBoundary() lazysentry.CatchHandler {
	if x.noBoundary {
		return nil
	}
	return lazysentry.CatchHandlerFunc(func(target lazysentry.BoundaryTarget, err error, info lazysentry.ErrorInfo) {
		id := x.recordCapture(OpBoundaryCatch, err, info)
		target.SetCaught(err, info.ComponentStack, id)
	})
}

func newScope() *Scope {
	return &Scope{
		Tags:     make(map[string]string),
		Extra:    make(map[string]any),
		Contexts: make(map[string]map[string]any),
	}
}

func (x *Scope) clone() Scope {
	return Scope{
		Tags:     maps.Clone(x.Tags),
		Extra:    maps.Clone(x.Extra),
		Contexts: maps.Clone(x.Contexts),
		User:     x.User,
		Level:    x.Level,
	}
}

func (x *Scope) SetTag(key, value string)                    { x.Tags[key] = value }
func (x *Scope) SetExtra(key string, value any)              { x.Extra[key] = value }
func (x *Scope) SetContext(key string, value map[string]any) { x.Contexts[key] = value }
func (x *Scope) SetLevel(level lazysentry.Level)             { x.Level = level }
func (x *Scope) SetUser(user lazysentry.User)                { x.User = user }

func (x *Scope) Clear() {
	*x = *newScope()
}
