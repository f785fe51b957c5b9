package sentryloader

import (
	"errors"
	"fmt"
	"maps"

	"github.com/getsentry/sentry-go"
	"github.com/joeycumines/go-lazysentry"
	"github.com/joeycumines/logiface"
)

type (
	// Module implements [lazysentry.Module] over a *sentry.Hub.
	Module struct {
		hub          *sentry.Hub
		logger       *logiface.Logger[logiface.Event]
		reportDialog func(options *lazysentry.ReportDialogOptions)
	}

	// scope adapts *sentry.Scope to [lazysentry.Scope].
	scope struct {
		scope *sentry.Scope
	}
)

var (
	_ lazysentry.Module = (*Module)(nil)
	_ lazysentry.Scope  = scope{}
)

// Hub returns the hub the client is bound to.
func (x *Module) Hub() *sentry.Hub { return x.hub }

func (x *Module) AddBreadcrumb(breadcrumb *lazysentry.Breadcrumb, hint lazysentry.BreadcrumbHint) {
	if breadcrumb == nil {
		return
	}
	var h *sentry.BreadcrumbHint
	if hint != nil {
		v := sentry.BreadcrumbHint(hint)
		h = &v
	}
	x.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      breadcrumb.Type,
		Category:  breadcrumb.Category,
		Message:   breadcrumb.Message,
		Data:      breadcrumb.Data,
		Level:     sentry.Level(breadcrumb.Level),
		Timestamp: breadcrumb.Timestamp,
	}, h)
}

func (x *Module) CaptureMessage(message string, capture *lazysentry.CaptureContext) lazysentry.EventID {
	return eventID(x.scoped(capture).CaptureMessage(message))
}

func (x *Module) CaptureException(err error, capture *lazysentry.CaptureContext) lazysentry.EventID {
	if err == nil {
		return ``
	}
	return eventID(x.scoped(capture).CaptureException(err))
}

// CaptureEvent converts event, using event.Err (if set) for the exception
// data, and captures it with hint.
func (x *Module) CaptureEvent(event *lazysentry.Event, hint *lazysentry.EventHint) lazysentry.EventID {
	client := x.hub.Client()
	if event == nil || client == nil {
		return ``
	}

	var e *sentry.Event
	if event.Err != nil {
		e = client.EventFromException(event.Err, sentry.Level(event.Level))
	} else {
		e = sentry.NewEvent()
		e.Level = sentry.Level(event.Level)
	}
	if event.Message != `` {
		e.Message = event.Message
	}
	if len(event.Tags) != 0 {
		e.Tags = maps.Clone(event.Tags)
	}
	if len(event.Extra) != 0 {
		e.Extra = maps.Clone(event.Extra)
	}
	for k, v := range event.Contexts {
		if e.Contexts == nil {
			e.Contexts = make(map[string]sentry.Context, len(event.Contexts))
		}
		e.Contexts[k] = v
	}

	var h *sentry.EventHint
	if hint != nil {
		h = &sentry.EventHint{Data: hint.Data, OriginalException: hint.OriginalException}
	}

	return eventID(client.CaptureEvent(e, h, x.hub.Scope()))
}

func (x *Module) ConfigureScope(fn func(scope lazysentry.Scope)) {
	x.hub.ConfigureScope(func(s *sentry.Scope) { fn(scope{s}) })
}

// ShowReportDialog calls the hook configured via [WithReportDialog], or
// logs the request. The event ID defaults to the last captured.
func (x *Module) ShowReportDialog(options *lazysentry.ReportDialogOptions) {
	var o lazysentry.ReportDialogOptions
	if options != nil {
		o = *options
	}
	if o.EventID == `` {
		o.EventID = lazysentry.EventID(x.hub.LastEventID())
	}
	if x.reportDialog != nil {
		x.reportDialog(&o)
		return
	}
	x.logger.Info().
		Str(`event_id`, string(o.EventID)).
		Str(`title`, o.Title).
		Log(`report dialog requested`)
}

func (x *Module) WithScope(fn func(scope lazysentry.Scope)) {
	x.hub.WithScope(func(s *sentry.Scope) { fn(scope{s}) })
}

// ErrorBoundary returns catch logic that captures the error, with the
// component stack as the "react" context, then sets the target's state,
// including the event ID.
func (x *Module) ErrorBoundary() lazysentry.CatchHandler {
	return lazysentry.CatchHandlerFunc(func(target lazysentry.BoundaryTarget, err error, info lazysentry.ErrorInfo) {
		id := x.CaptureException(err, &lazysentry.CaptureContext{
			Contexts: map[string]map[string]any{
				`react`: {`componentStack`: info.ComponentStack},
			},
		})
		target.SetCaught(err, info.ComponentStack, id)
	})
}

// scoped returns the hub to capture with, which is a clone of the bound hub
// if capture has anything to apply.
func (x *Module) scoped(capture *lazysentry.CaptureContext) *sentry.Hub {
	if capture == nil {
		return x.hub
	}
	hub := x.hub.Clone()
	hub.ConfigureScope(func(s *sentry.Scope) {
		if capture.Level != `` {
			s.SetLevel(sentry.Level(capture.Level))
		}
		for k, v := range capture.Tags {
			s.SetTag(k, v)
		}
		for k, v := range capture.Extra {
			s.SetExtra(k, v)
		}
		for k, v := range capture.Contexts {
			s.SetContext(k, v)
		}
	})
	return hub
}

// installHandlers replaces the slots of handlers with handlers that capture
// each event, then chain to the handler they replaced.
func (x *Module) installHandlers(handlers *lazysentry.HandlerRegistry) {
	prev := handlers.Snapshot()
	handlers.Override(
		func(event lazysentry.ErrorEvent) {
			x.captureErrorEvent(event)
			if prev.OnError != nil {
				prev.OnError(event)
			}
		},
		func(event lazysentry.RejectionEvent) {
			x.captureRejectionEvent(event)
			if prev.OnUnhandledRejection != nil {
				prev.OnUnhandledRejection(event)
			}
		},
	)
}

func (x *Module) captureErrorEvent(event lazysentry.ErrorEvent) {
	err := event.Err
	if err == nil {
		err = errors.New(event.Message)
	}
	hub := x.hub.Clone()
	hub.ConfigureScope(func(s *sentry.Scope) {
		s.SetLevel(sentry.LevelFatal)
		s.SetTag(`mechanism`, `onerror`)
		if event.Source != `` {
			s.SetContext(`source`, sentry.Context{
				`file`:   event.Source,
				`line`:   event.Line,
				`column`: event.Column,
			})
		}
	})
	hub.CaptureException(err)
}

func (x *Module) captureRejectionEvent(event lazysentry.RejectionEvent) {
	hub := x.hub.Clone()
	hub.ConfigureScope(func(s *sentry.Scope) {
		s.SetLevel(sentry.LevelError)
		s.SetTag(`mechanism`, `onunhandledrejection`)
	})
	if err, ok := event.Reason.(error); ok {
		hub.CaptureException(err)
		return
	}
	hub.CaptureMessage(fmt.Sprintf(`unhandled rejection: %v`, event.Reason))
}

func eventID(id *sentry.EventID) lazysentry.EventID {
	if id == nil {
		return ``
	}
	return lazysentry.EventID(*id)
}

func (x scope) SetTag(key, value string)    { x.scope.SetTag(key, value) }
func (x scope) SetExtra(key string, v any)  { x.scope.SetExtra(key, v) }
func (x scope) SetLevel(l lazysentry.Level) { x.scope.SetLevel(sentry.Level(l)) }
func (x scope) Clear()                      { x.scope.Clear() }

func (x scope) SetContext(key string, value map[string]any) {
	x.scope.SetContext(key, value)
}

func (x scope) SetUser(user lazysentry.User) {
	x.scope.SetUser(sentry.User{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		IPAddress: user.IPAddress,
	})
}
