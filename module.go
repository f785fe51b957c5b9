package lazysentry

import (
	"context"
)

type (
	// Operations is the telemetry call surface. The [Facade] and the real
	// library's [Module] share these signatures.
	Operations interface {
		AddBreadcrumb(breadcrumb *Breadcrumb, hint BreadcrumbHint)
		CaptureMessage(message string, capture *CaptureContext) EventID
		CaptureException(err error, capture *CaptureContext) EventID
		CaptureEvent(event *Event, hint *EventHint) EventID
		ConfigureScope(fn func(scope Scope))
		ShowReportDialog(options *ReportDialogOptions)
		WithScope(fn func(scope Scope))
	}

	// Module is the initialized real library.
	Module interface {
		Operations

		// ErrorBoundary returns the library's own crash boundary catch logic,
		// or nil if the library has none.
		ErrorBoundary() CatchHandler
	}

	// Library is the resolved, but not yet initialized, real library.
	Library interface {
		// Init is the library's initialization entry point. It may install
		// handlers into a [HandlerRegistry], chaining whatever is present.
		Init(options Options) (Module, error)
	}

	// Loader performs the asynchronous fetch of the real library. It is
	// called at most once per [Facade], on its own goroutine.
	Loader interface {
		Load(ctx context.Context) (Library, error)
	}

	// LoaderFunc implements [Loader].
	LoaderFunc func(ctx context.Context) (Library, error)

	// CatchHandler is crash boundary catch logic, implemented both by the
	// pre-load boundary and by the real library.
	CatchHandler interface {
		// HandleCatch handles err, caught by target, which it should update
		// via [BoundaryTarget.SetCaught].
		HandleCatch(target BoundaryTarget, err error, info ErrorInfo)
	}

	// CatchHandlerFunc implements [CatchHandler].
	CatchHandlerFunc func(target BoundaryTarget, err error, info ErrorInfo)

	// BoundaryTarget is the crash boundary instance a [CatchHandler] acts on.
	BoundaryTarget interface {
		SetCaught(err error, componentStack string, id EventID)
	}

	// BoundaryReceiver is notified with the real library's catch logic once
	// the library has loaded.
	BoundaryReceiver interface {
		Deliver(handler CatchHandler)
	}
)

// Load implements [Loader].
func (x LoaderFunc) Load(ctx context.Context) (Library, error) { return x(ctx) }

// HandleCatch implements [CatchHandler].
func (x CatchHandlerFunc) HandleCatch(target BoundaryTarget, err error, info ErrorInfo) {
	x(target, err, info)
}
