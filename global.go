package lazysentry

import (
	"sync/atomic"
)

var defaultFacade atomic.Pointer[Facade]

func init() {
	defaultFacade.Store(New())
}

// Default returns the facade used by the package-level functions. Unless
// replaced via [SetDefault], it has no loader, so [Init] will fail with
// [ErrNoLoader], and calls will be queued indefinitely.
func Default() *Facade { return defaultFacade.Load() }

// SetDefault replaces the facade used by the package-level functions, and
// returns the previous one. Calls already queued on the previous facade are
// not transferred. Panics if facade is nil.
func SetDefault(facade *Facade) *Facade {
	if facade == nil {
		panic(`lazysentry: default facade must not be nil`)
	}
	return defaultFacade.Swap(facade)
}

// Init calls [Facade.Init] on the default facade.
func Init(options Options) error { return Default().Init(options) }

// AddBreadcrumb calls [Facade.AddBreadcrumb] on the default facade.
func AddBreadcrumb(breadcrumb *Breadcrumb, hint BreadcrumbHint) {
	Default().AddBreadcrumb(breadcrumb, hint)
}

// CaptureMessage calls [Facade.CaptureMessage] on the default facade.
func CaptureMessage(message string, capture *CaptureContext) EventID {
	return Default().CaptureMessage(message, capture)
}

// CaptureException calls [Facade.CaptureException] on the default facade.
func CaptureException(err error, capture *CaptureContext) EventID {
	return Default().CaptureException(err, capture)
}

// CaptureEvent calls [Facade.CaptureEvent] on the default facade.
func CaptureEvent(event *Event, hint *EventHint) EventID {
	return Default().CaptureEvent(event, hint)
}

// ConfigureScope calls [Facade.ConfigureScope] on the default facade.
func ConfigureScope(fn func(scope Scope)) { Default().ConfigureScope(fn) }

// ShowReportDialog calls [Facade.ShowReportDialog] on the default facade.
func ShowReportDialog(options *ReportDialogOptions) { Default().ShowReportDialog(options) }

// WithScope calls [Facade.WithScope] on the default facade.
func WithScope(fn func(scope Scope)) { Default().WithScope(fn) }
