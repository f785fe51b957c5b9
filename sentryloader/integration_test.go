package sentryloader

import (
	"context"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joeycumines/go-lazysentry"
	"github.com/stretchr/testify/require"
)

func TestLazyTracing_processEvent(t *testing.T) {
	start := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	tracing := &LazyTracing{LoadStart: start, LoadDuration: 1500 * time.Millisecond}
	require.Equal(t, `LazyTracing`, tracing.Name())

	event := tracing.processEvent(sentry.NewEvent(), nil)
	require.Equal(t, sentry.Context{
		`load_start`:    `2024-02-03T04:05:06Z`,
		`load_duration`: `1.5s`,
	}, event.Contexts[`lazysentry`])

	event = &sentry.Event{Contexts: map[string]sentry.Context{`react`: {}}}
	event = tracing.processEvent(event, nil)
	require.Len(t, event.Contexts, 2)
}

type lastEventTransport struct {
	sentry.Transport
	last *sentry.Event
}

func (x *lastEventTransport) Configure(sentry.ClientOptions) {}
func (x *lastEventTransport) Flush(time.Duration) bool       { return true }
func (x *lastEventTransport) SendEvent(event *sentry.Event)  { x.last = event }

func TestLibrary_Init_loadTiming(t *testing.T) {
	old := timeNow
	t.Cleanup(func() { timeNow = old })
	now := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	timeNow = func() time.Time { return now }

	transport := new(lastEventTransport)
	lib, err := New(
		WithHub(sentry.NewHub(nil, sentry.NewScope())),
		WithHandlers(lazysentry.NewHandlerRegistry()),
		WithTransport(transport),
	).Load(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	module, err := lib.Init(lazysentry.Options{})
	require.NoError(t, err)

	require.NotEmpty(t, module.CaptureMessage(`timed`, nil))
	require.NotNil(t, transport.last)
	require.Equal(t, sentry.Context{
		`load_start`:    `2024-02-03T04:05:06Z`,
		`load_duration`: `2s`,
	}, transport.last.Contexts[`lazysentry`])
}
