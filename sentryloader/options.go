package sentryloader

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"
	"github.com/joeycumines/go-lazysentry"
	"github.com/joeycumines/logiface"
)

// loaderOptions holds configuration for a [Loader].
type loaderOptions struct {
	handlers     *lazysentry.HandlerRegistry
	logger       *logiface.Logger[logiface.Event]
	hub          *sentry.Hub
	transport    sentry.Transport
	beforeSend   func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
	reportDialog func(options *lazysentry.ReportDialogOptions)
	importHook   func(ctx context.Context) error
}

// Option configures a [Loader].
type Option interface {
	applyOption(*loaderOptions) error
}

type loaderOptionImpl struct {
	fn func(*loaderOptions) error
}

func (o *loaderOptionImpl) applyOption(opts *loaderOptions) error {
	return o.fn(opts)
}

// WithHandlers configures the registry that the initialized library installs
// its global handlers into. Defaults to lazysentry.GlobalHandlers(), and
// should match the facade's.
func WithHandlers(handlers *lazysentry.HandlerRegistry) Option {
	return &loaderOptionImpl{fn: func(opts *loaderOptions) error {
		if handlers == nil {
			return errors.New(`sentryloader: handlers must not be nil`)
		}
		opts.handlers = handlers
		return nil
	}}
}

// WithLogger configures the logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &loaderOptionImpl{fn: func(opts *loaderOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithHub binds the client to hub, instead of sentry.CurrentHub().
func WithHub(hub *sentry.Hub) Option {
	return &loaderOptionImpl{fn: func(opts *loaderOptions) error {
		if hub == nil {
			return errors.New(`sentryloader: hub must not be nil`)
		}
		opts.hub = hub
		return nil
	}}
}

// WithTransport overrides the client's transport.
func WithTransport(transport sentry.Transport) Option {
	return &loaderOptionImpl{fn: func(opts *loaderOptions) error {
		opts.transport = transport
		return nil
	}}
}

// WithBeforeSend configures sentry.ClientOptions.BeforeSend.
func WithBeforeSend(fn func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event) Option {
	return &loaderOptionImpl{fn: func(opts *loaderOptions) error {
		opts.beforeSend = fn
		return nil
	}}
}

// WithReportDialog configures the implementation of ShowReportDialog, which
// otherwise only logs the request.
func WithReportDialog(fn func(options *lazysentry.ReportDialogOptions)) Option {
	return &loaderOptionImpl{fn: func(opts *loaderOptions) error {
		opts.reportDialog = fn
		return nil
	}}
}

// WithImport configures a hook run by [Loader.Load] before the library is
// returned, e.g. to fetch or verify assets. An error fails the load.
func WithImport(fn func(ctx context.Context) error) Option {
	return &loaderOptionImpl{fn: func(opts *loaderOptions) error {
		opts.importHook = fn
		return nil
	}}
}

func resolveOptions(opts []Option) (*loaderOptions, error) {
	cfg := &loaderOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.handlers == nil {
		cfg.handlers = lazysentry.GlobalHandlers()
	}
	return cfg, nil
}
