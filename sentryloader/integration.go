package sentryloader

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// LazyTracing is the integration appended to every client initialized by
// this package. It adds a "lazysentry" context to each event, describing
// the deferred load.
type LazyTracing struct {
	LoadStart    time.Time
	LoadDuration time.Duration
}

var _ sentry.Integration = (*LazyTracing)(nil)

func (x *LazyTracing) Name() string { return `LazyTracing` }

func (x *LazyTracing) SetupOnce(client *sentry.Client) {
	client.AddEventProcessor(x.processEvent)
}

func (x *LazyTracing) processEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Contexts == nil {
		event.Contexts = make(map[string]sentry.Context)
	}
	event.Contexts[`lazysentry`] = sentry.Context{
		`load_start`:    x.LoadStart.UTC().Format(time.RFC3339Nano),
		`load_duration`: x.LoadDuration.String(),
	}
	return event
}
