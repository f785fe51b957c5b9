// Package sentryloader binds the lazysentry facade to
// github.com/getsentry/sentry-go.
//
// A [Loader] is passed to lazysentry.WithLoader. Once loaded, the library's
// initialization creates a sentry client from the forwarded
// lazysentry.Options, appends the load tracing integration, binds the client
// to a hub, and installs handlers for uncaught errors and unhandled
// rejections, chaining any handlers that were already present.
package sentryloader

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joeycumines/go-lazysentry"
)

type (
	// Loader implements [lazysentry.Loader]. Create instances with [New].
	Loader struct {
		opts *loaderOptions
	}

	// Library implements [lazysentry.Library], as returned by [Loader.Load].
	Library struct {
		opts      *loaderOptions
		loadStart time.Time
	}
)

var (
	_ lazysentry.Loader  = (*Loader)(nil)
	_ lazysentry.Library = (*Library)(nil)

	// used to mock time in tests
	timeNow = time.Now
)

// New returns a new loader. It panics if any option fails validation.
func New(opts ...Option) *Loader {
	cfg, err := resolveOptions(opts)
	if err != nil {
		panic(fmt.Sprintf(`sentryloader: %s`, err))
	}
	return &Loader{opts: cfg}
}

// Load runs the import hook, if configured, and returns the library, ready
// to be initialized. There is no retry.
func (x *Loader) Load(ctx context.Context) (lazysentry.Library, error) {
	start := timeNow()
	if x.opts.importHook != nil {
		if err := x.opts.importHook(ctx); err != nil {
			return nil, err
		}
	}
	x.opts.logger.Debug().
		Dur(`elapsed`, timeNow().Sub(start)).
		Log(`sentry library imported`)
	return &Library{opts: x.opts, loadStart: start}, nil
}

// Init creates and binds the sentry client, and installs global handlers.
// Values in options.Integrations that implement sentry.Integration are
// installed alongside the load tracing integration, others are ignored.
func (x *Library) Init(options lazysentry.Options) (lazysentry.Module, error) {
	tracing := &LazyTracing{LoadStart: x.loadStart, LoadDuration: timeNow().Sub(x.loadStart)}

	extra := make([]sentry.Integration, 0, len(options.Integrations))
	for _, v := range options.Integrations {
		if integration, ok := v.(sentry.Integration); ok {
			extra = append(extra, integration)
		} else {
			x.opts.logger.Warning().
				Str(`type`, fmt.Sprintf(`%T`, v)).
				Log(`ignoring unsupported integration`)
		}
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              options.Dsn,
		Debug:            options.Debug,
		SampleRate:       options.SampleRate,
		EnableTracing:    true,
		TracesSampleRate: options.TracesSampleRate,
		Release:          options.Release,
		Environment:      options.Environment,
		MaxBreadcrumbs:   options.MaxBreadcrumbs,
		BeforeSend:       x.opts.beforeSend,
		Transport:        x.opts.transport,
		Integrations: func(defaults []sentry.Integration) []sentry.Integration {
			integrations := append(defaults, extra...)
			return append(integrations, tracing)
		},
	})
	if err != nil {
		return nil, err
	}

	hub := x.opts.hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.BindClient(client)
	if len(options.Tags) != 0 {
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTags(options.Tags)
		})
	}

	m := &Module{
		hub:          hub,
		logger:       x.opts.logger,
		reportDialog: x.opts.reportDialog,
	}
	m.installHandlers(x.opts.handlers)

	x.opts.logger.Info().
		Str(`environment`, options.Environment).
		Str(`release`, options.Release).
		Dur(`load_duration`, tracing.LoadDuration).
		Log(`sentry client initialized`)

	return m, nil
}
