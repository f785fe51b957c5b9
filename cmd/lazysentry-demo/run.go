package main

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-lazysentry"
	"github.com/joeycumines/go-lazysentry/boundary"
	"github.com/joeycumines/go-lazysentry/sentryloader"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"golang.org/x/sync/errgroup"
)

const flushTimeout = 2 * time.Second

var errWidget = errors.New(`widget failed to render`)

func newLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	).Logger()
}

// run executes the demo, returning once the queued telemetry has been
// replayed and flushed, or on failure.
func run(ctx context.Context, cfg Config, out io.Writer) error {
	level, err := cfg.level()
	if err != nil {
		return err
	}
	logger := newLogger(out, level)

	loop, err := eventloop.New()
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, eventloop.ErrLoopTerminated) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			_ = loop.Shutdown(shutdownCtx)
		}()
		return demo(ctx, cfg, logger, loop)
	})

	return g.Wait()
}

func demo(ctx context.Context, cfg Config, logger *logiface.Logger[logiface.Event], loop *eventloop.Loop) error {
	var (
		handlers = lazysentry.NewHandlerRegistry()
		delegate = new(boundary.Delegate)
		hub      = sentry.NewHub(nil, sentry.NewScope())
	)

	loader := sentryloader.New(
		sentryloader.WithHandlers(handlers),
		sentryloader.WithLogger(logger),
		sentryloader.WithHub(hub),
		sentryloader.WithImport(func(ctx context.Context) error {
			timer := time.NewTimer(cfg.LoadDelay)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		sentryloader.WithBeforeSend(func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			b := logger.Info().
				Str(`event_id`, string(event.EventID)).
				Str(`level`, string(event.Level))
			if event.Message != `` {
				b = b.Str(`message`, event.Message)
			}
			if len(event.Exception) != 0 {
				b = b.Str(`exception`, event.Exception[len(event.Exception)-1].Value)
			}
			b.Log(`event sent`)
			return event
		}),
		sentryloader.WithReportDialog(func(options *lazysentry.ReportDialogOptions) {
			logger.Notice().
				Str(`event_id`, string(options.EventID)).
				Log(`report dialog shown`)
		}),
	)

	facade := lazysentry.New(
		lazysentry.WithLoader(loader),
		lazysentry.WithLoop(loop),
		lazysentry.WithHandlers(handlers),
		lazysentry.WithLogger(logger),
		lazysentry.WithBoundaryReceiver(delegate),
	)

	widget := boundary.New(boundary.Config{
		Reporter: facade,
		Delegate: delegate,
		Logger:   logger,
	}, boundary.Props{
		ChildrenFunc: func() boundary.Node { panic(errWidget) },
		FallbackFunc: func(props boundary.FallbackProps) boundary.Node {
			logger.Info().
				Err(props.Err).
				Str(`event_id`, string(props.EventID)).
				Log(`rendered fallback`)
			return `fallback`
		},
		OnReset: func(err error, _ string, id lazysentry.EventID) {
			logger.Debug().Err(err).Str(`event_id`, string(id)).Log(`widget reset`)
		},
	})

	if err := facade.Init(cfg.Sentry); err != nil {
		return err
	}

	// application startup, on the loop, while the library loads
	if err := submitWait(ctx, loop, func() {
		facade.AddBreadcrumb(&lazysentry.Breadcrumb{Category: `lifecycle`, Message: `startup`}, nil)
		facade.ConfigureScope(func(scope lazysentry.Scope) { scope.SetTag(`component`, `demo`) })
		widget.Render()
		handlers.ReportRejection(`configuration fetch rejected`)
	}); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer handlers.Recover()
		panic(`background worker crashed`)
	}()
	wg.Wait()

	logger.Info().Int(`pending`, facade.Pending()).Log(`waiting for the monitoring library`)
	if err := waitLoaded(ctx, facade); err != nil {
		return err
	}

	// same boundary, now delegating to the real catch logic
	if err := submitWait(ctx, loop, func() {
		widget.Reset()
		widget.Render()
		facade.ShowReportDialog(nil)
	}); err != nil {
		return err
	}

	if !hub.Flush(flushTimeout) {
		logger.Warning().Log(`timed out flushing events`)
	}
	return nil
}

// submitWait runs fn on the loop, and waits for it to complete.
func submitWait(ctx context.Context, loop *eventloop.Loop, fn func()) error {
	done := make(chan struct{})
	if err := loop.Submit(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func waitLoaded(ctx context.Context, facade *lazysentry.Facade) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-facade.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := facade.Err(); err != nil {
				return err
			}
		}
	}
}
