package lazysentry

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// Loop is the interface required for event loop integration, satisfied by
// *eventloop.Loop from github.com/joeycumines/go-eventloop.
type Loop interface {
	// SubmitInternal submits a task to the internal priority queue.
	// Load resolution is submitted via this method.
	SubmitInternal(func()) error
}

// facadeOptions holds configuration for a [Facade] instance.
type facadeOptions struct {
	loader    Loader
	loop      Loop
	handlers  *HandlerRegistry
	logger    *logiface.Logger[logiface.Event]
	receivers []BoundaryReceiver
}

// Option configures a [Facade] instance. Options are applied during
// construction.
type Option interface {
	applyOption(*facadeOptions) error
}

// facadeOptionImpl implements [Option] via a closure.
type facadeOptionImpl struct {
	fn func(*facadeOptions) error
}

func (o *facadeOptionImpl) applyOption(opts *facadeOptions) error {
	return o.fn(opts)
}

// WithLoader configures the [Loader] used by [Facade.Init].
// The loader must not be nil.
func WithLoader(loader Loader) Option {
	return &facadeOptionImpl{fn: func(opts *facadeOptions) error {
		if loader == nil {
			return errors.New(`lazysentry: loader must not be nil`)
		}
		opts.loader = loader
		return nil
	}}
}

// WithLoop configures an event loop, on which load resolution (handler
// restoration, binding, and replay) will run. Without a loop, resolution
// runs on the loader's goroutine.
// The loop must not be nil.
func WithLoop(loop Loop) Option {
	return &facadeOptionImpl{fn: func(opts *facadeOptions) error {
		if loop == nil {
			return errors.New(`lazysentry: loop must not be nil`)
		}
		opts.loop = loop
		return nil
	}}
}

// WithHandlers configures the registry whose slots are captured during
// load. Defaults to [GlobalHandlers].
// The registry must not be nil.
func WithHandlers(handlers *HandlerRegistry) Option {
	return &facadeOptionImpl{fn: func(opts *facadeOptions) error {
		if handlers == nil {
			return errors.New(`lazysentry: handlers must not be nil`)
		}
		opts.handlers = handlers
		return nil
	}}
}

// WithLogger configures the logger. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &facadeOptionImpl{fn: func(opts *facadeOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithBoundaryReceiver registers a receiver for the real library's crash
// boundary catch logic, e.g. a boundary.Delegate. May be provided multiple
// times. The receiver must not be nil.
func WithBoundaryReceiver(receiver BoundaryReceiver) Option {
	return &facadeOptionImpl{fn: func(opts *facadeOptions) error {
		if receiver == nil {
			return errors.New(`lazysentry: boundary receiver must not be nil`)
		}
		opts.receivers = append(opts.receivers, receiver)
		return nil
	}}
}

// resolveOptions applies the given options to a default [facadeOptions].
func resolveOptions(opts []Option) (*facadeOptions, error) {
	cfg := &facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyOption(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.handlers == nil {
		cfg.handlers = GlobalHandlers()
	}
	return cfg, nil
}
