package lazysentry_test

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/joeycumines/go-lazysentry"
	"github.com/joeycumines/go-lazysentry/lazysentrytest"
	"github.com/stretchr/testify/require"
)

// callAll invokes each of the seven operations once, in a fixed order.
func callAll(f *lazysentry.Facade) []lazysentry.EventID {
	f.AddBreadcrumb(&lazysentry.Breadcrumb{Message: `crumb`}, lazysentry.BreadcrumbHint{`k`: `v`})
	var ids []lazysentry.EventID
	ids = append(ids, f.CaptureMessage(`message`, nil))
	ids = append(ids, f.CaptureException(errors.New(`exception`), &lazysentry.CaptureContext{Level: lazysentry.LevelWarning}))
	ids = append(ids, f.CaptureEvent(&lazysentry.Event{Message: `event`}, nil))
	f.ConfigureScope(func(scope lazysentry.Scope) { scope.SetTag(`configured`, `yes`) })
	f.ShowReportDialog(&lazysentry.ReportDialogOptions{Title: `title`})
	f.WithScope(func(scope lazysentry.Scope) { scope.SetTag(`temporary`, `yes`) })
	return ids
}

var allOps = []string{
	lazysentrytest.OpAddBreadcrumb,
	lazysentrytest.OpCaptureMessage,
	lazysentrytest.OpCaptureException,
	lazysentrytest.OpCaptureEvent,
	lazysentrytest.OpConfigureScope,
	lazysentrytest.OpShowReportDialog,
	lazysentrytest.OpWithScope,
}

func TestFacade_replaysInOrder(t *testing.T) {
	for _, tc := range [...]struct {
		Name       string
		BeforeInit bool
	}{
		{Name: `before init`, BeforeInit: true},
		{Name: `during load`},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			gate, release := newGate(t)
			rec := lazysentrytest.NewRecorder(lazysentrytest.WithLoadGate(gate))
			f := lazysentry.New(
				lazysentry.WithLoader(rec),
				lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
			)

			var ids []lazysentry.EventID
			if tc.BeforeInit {
				ids = callAll(f)
				require.Equal(t, lazysentry.StateIdle, f.State())
			}
			require.NoError(t, f.Init(lazysentry.Options{Dsn: `dsn`}))
			if !tc.BeforeInit {
				ids = callAll(f)
			}
			require.Equal(t, lazysentry.StateLoading, f.State())

			for _, id := range ids {
				require.Empty(t, id)
			}
			require.Equal(t, len(allOps), f.Pending())
			require.Empty(t, rec.Calls())

			release()
			waitDone(t, f)

			require.Equal(t, lazysentry.StateLoaded, f.State())
			require.NoError(t, f.Err())
			require.Zero(t, f.Pending())
			if diff := cmp.Diff(allOps, rec.Ops()); diff != `` {
				t.Errorf("unexpected ops (-want +got):\n%s", diff)
			}
			require.Equal(t, []lazysentry.Options{{Dsn: `dsn`}}, rec.InitOptions())
			require.Equal(t, map[string]string{`configured`: `yes`}, rec.Scope().Tags)

			calls := rec.Calls()
			require.Equal(t, `crumb`, calls[0].Args[0].(*lazysentry.Breadcrumb).Message)
			require.Equal(t, lazysentry.BreadcrumbHint{`k`: `v`}, calls[0].Args[1])
			require.Equal(t, `message`, calls[1].Args[0])
			require.EqualError(t, calls[2].Args[0].(error), `exception`)
			require.Equal(t, lazysentry.LevelWarning, calls[2].Args[1].(*lazysentry.CaptureContext).Level)
			require.Equal(t, `event`, calls[3].Args[0].(*lazysentry.Event).Message)
			require.Equal(t, `title`, calls[5].Args[0].(*lazysentry.ReportDialogOptions).Title)
		})
	}
}

func TestFacade_breadcrumbThenException(t *testing.T) {
	rec := lazysentrytest.NewRecorder()
	f := lazysentry.New(
		lazysentry.WithLoader(rec),
		lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
	)

	errY := errors.New(`y`)
	f.AddBreadcrumb(&lazysentry.Breadcrumb{Message: `x`}, nil)
	require.Empty(t, f.CaptureException(errY, nil))

	require.NoError(t, f.Init(lazysentry.Options{}))
	waitDone(t, f)

	calls := rec.Calls()
	require.Len(t, calls, 2)
	require.Equal(t, lazysentrytest.OpAddBreadcrumb, calls[0].Op)
	require.Equal(t, `x`, calls[0].Args[0].(*lazysentry.Breadcrumb).Message)
	require.Equal(t, lazysentrytest.OpCaptureException, calls[1].Op)
	require.Same(t, errY, calls[1].Args[0])
}

func TestFacade_directAfterLoad(t *testing.T) {
	rec := lazysentrytest.NewRecorder()
	f := lazysentry.New(
		lazysentry.WithLoader(rec),
		lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
	)
	require.NoError(t, f.Init(lazysentry.Options{}))
	waitDone(t, f)

	ids := callAll(f)
	require.Zero(t, f.Pending())
	if diff := cmp.Diff(allOps, rec.Ops()); diff != `` {
		t.Errorf("unexpected ops (-want +got):\n%s", diff)
	}

	// capture calls return the id produced by the module
	calls := rec.Calls()
	for i, call := range calls[1:4] {
		require.NotEmpty(t, ids[i])
		require.Equal(t, ids[i], call.Args[len(call.Args)-1])
	}
}

func TestFacade_callsDuringReplayAreOrdered(t *testing.T) {
	rec := lazysentrytest.NewRecorder()
	f := lazysentry.New(
		lazysentry.WithLoader(rec),
		lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
	)

	f.ConfigureScope(func(lazysentry.Scope) {
		// made while the queue is being replayed
		f.AddBreadcrumb(&lazysentry.Breadcrumb{Message: `reentrant`}, nil)
	})
	f.AddBreadcrumb(&lazysentry.Breadcrumb{Message: `queued`}, nil)

	require.NoError(t, f.Init(lazysentry.Options{}))
	waitDone(t, f)

	calls := rec.Calls()
	require.Len(t, calls, 3)
	require.Equal(t, lazysentrytest.OpConfigureScope, calls[0].Op)
	require.Equal(t, `queued`, calls[1].Args[0].(*lazysentry.Breadcrumb).Message)
	require.Equal(t, `reentrant`, calls[2].Args[0].(*lazysentry.Breadcrumb).Message)
}

func TestFacade_Init_errors(t *testing.T) {
	t.Run(`no loader`, func(t *testing.T) {
		f := lazysentry.New(lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()))
		require.ErrorIs(t, f.Init(lazysentry.Options{}), lazysentry.ErrNoLoader)
		require.Equal(t, lazysentry.StateIdle, f.State())
	})

	t.Run(`already initialized`, func(t *testing.T) {
		gate, release := newGate(t)
		rec := lazysentrytest.NewRecorder(lazysentrytest.WithLoadGate(gate))
		f := lazysentry.New(
			lazysentry.WithLoader(rec),
			lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
		)
		require.NoError(t, f.Init(lazysentry.Options{Release: `1`}))
		require.ErrorIs(t, f.Init(lazysentry.Options{Release: `2`}), lazysentry.ErrAlreadyInitialized)
		release()
		waitDone(t, f)
		require.ErrorIs(t, f.Init(lazysentry.Options{Release: `3`}), lazysentry.ErrAlreadyInitialized)
		require.Equal(t, []lazysentry.Options{{Release: `1`}}, rec.InitOptions())
	})

	t.Run(`already failed`, func(t *testing.T) {
		rec := lazysentrytest.NewRecorder(lazysentrytest.WithLoadError(errors.New(`offline`)))
		f := lazysentry.New(
			lazysentry.WithLoader(rec),
			lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
		)
		require.NoError(t, f.Init(lazysentry.Options{}))
		waitState(t, f, lazysentry.StateFailed)
		require.ErrorIs(t, f.Init(lazysentry.Options{}), lazysentry.ErrAlreadyInitialized)
	})
}

func TestFacade_globalEvents(t *testing.T) {
	reg := lazysentry.NewHandlerRegistry()
	var (
		mu         sync.Mutex
		errEvents  []lazysentry.ErrorEvent
		rejections []lazysentry.RejectionEvent
	)
	reg.SetOnError(func(event lazysentry.ErrorEvent) {
		mu.Lock()
		errEvents = append(errEvents, event)
		mu.Unlock()
	})
	reg.SetOnUnhandledRejection(func(event lazysentry.RejectionEvent) {
		mu.Lock()
		rejections = append(rejections, event)
		mu.Unlock()
	})
	counts := func() (int, int) {
		mu.Lock()
		defer mu.Unlock()
		return len(errEvents), len(rejections)
	}

	gate, release := newGate(t)
	rec := lazysentrytest.NewRecorder(
		lazysentrytest.WithLoadGate(gate),
		lazysentrytest.WithInstallHandlers(reg),
	)
	f := lazysentry.New(lazysentry.WithLoader(rec), lazysentry.WithHandlers(reg))
	require.NoError(t, f.Init(lazysentry.Options{}))

	f.AddBreadcrumb(&lazysentry.Breadcrumb{Message: `before`}, nil)
	reg.DispatchError(lazysentry.ErrorEvent{Message: `e1`})
	reg.DispatchRejection(lazysentry.RejectionEvent{Reason: `r1`})
	reg.DispatchError(lazysentry.ErrorEvent{Message: `e2`})
	reg.ReportRejection(`r2`)

	// captured only, the original handlers see nothing during load
	nErr, nRej := counts()
	require.Zero(t, nErr)
	require.Zero(t, nRej)

	release()
	waitDone(t, f)

	if diff := cmp.Diff([]string{
		lazysentrytest.OpAddBreadcrumb,
		lazysentrytest.OpOnError,
		lazysentrytest.OpOnError,
		lazysentrytest.OpOnUnhandledRejection,
		lazysentrytest.OpOnUnhandledRejection,
	}, rec.Ops()); diff != `` {
		t.Errorf("unexpected ops (-want +got):\n%s", diff)
	}
	require.Equal(t, []lazysentry.ErrorEvent{{Message: `e1`}, {Message: `e2`}}, errEvents)
	require.Equal(t, []lazysentry.RejectionEvent{{Reason: `r1`}, {Reason: `r2`}}, rejections)

	// delivered directly after load
	reg.DispatchError(lazysentry.ErrorEvent{Message: `e3`})
	nErr, nRej = counts()
	require.Equal(t, 3, nErr)
	require.Equal(t, 2, nRej)
	require.Equal(t, lazysentrytest.OpOnError, rec.Ops()[5])
}

func TestFacade_restoresHandlers(t *testing.T) {
	reg := lazysentry.NewHandlerRegistry()
	var calls atomic.Int32
	reg.SetOnError(func(lazysentry.ErrorEvent) { calls.Add(1) })

	gate, release := newGate(t)
	f := lazysentry.New(
		lazysentry.WithLoader(lazysentrytest.NewRecorder(lazysentrytest.WithLoadGate(gate))),
		lazysentry.WithHandlers(reg),
	)
	require.NoError(t, f.Init(lazysentry.Options{}))
	require.NotNil(t, reg.OnUnhandledRejection())

	reg.DispatchError(lazysentry.ErrorEvent{Message: `during`})
	require.Zero(t, calls.Load())

	release()
	waitDone(t, f)

	require.Nil(t, reg.OnUnhandledRejection())
	require.Equal(t, int32(1), calls.Load())
	reg.DispatchError(lazysentry.ErrorEvent{Message: `after`})
	require.Equal(t, int32(2), calls.Load())
}

func TestFacade_loadFailure(t *testing.T) {
	errOffline := errors.New(`offline`)
	for _, tc := range [...]struct {
		Name   string
		Loader lazysentry.Loader
		Stage  string
		Check  func(t *testing.T, err error)
	}{
		{
			Name:   `load error`,
			Loader: lazysentrytest.NewRecorder(lazysentrytest.WithLoadError(errOffline)),
			Stage:  `load`,
			Check:  func(t *testing.T, err error) { require.ErrorIs(t, err, errOffline) },
		},
		{
			Name:   `init error`,
			Loader: lazysentrytest.NewRecorder(lazysentrytest.WithInitError(errOffline)),
			Stage:  `init`,
			Check:  func(t *testing.T, err error) { require.ErrorIs(t, err, errOffline) },
		},
		{
			Name: `loader panic`,
			Loader: lazysentry.LoaderFunc(func(context.Context) (lazysentry.Library, error) {
				panic(`parse error`)
			}),
			Stage: `load`,
			Check: func(t *testing.T, err error) {
				var panicErr lazysentry.PanicError
				require.ErrorAs(t, err, &panicErr)
				require.Equal(t, `parse error`, panicErr.Value)
			},
		},
		{
			Name: `loader goexit`,
			Loader: lazysentry.LoaderFunc(func(context.Context) (lazysentry.Library, error) {
				runtime.Goexit()
				return nil, nil
			}),
			Stage: `load`,
			Check: func(t *testing.T, err error) { require.ErrorContains(t, err, `Goexit`) },
		},
		{
			Name: `boundary panic`,
			Loader: libraryLoader(func(lazysentry.Options) (lazysentry.Module, error) {
				return brokenBoundary{lazysentrytest.NewRecorder()}, nil
			}),
			Stage: `init`,
			Check: func(t *testing.T, err error) {
				var panicErr lazysentry.PanicError
				require.ErrorAs(t, err, &panicErr)
				require.Equal(t, `boundary unavailable`, panicErr.Value)
			},
		},
		{
			Name: `init goexit`,
			Loader: libraryLoader(func(lazysentry.Options) (lazysentry.Module, error) {
				runtime.Goexit()
				return nil, nil
			}),
			Stage: `init`,
			Check: func(t *testing.T, err error) { require.ErrorContains(t, err, `Goexit`) },
		},
		{
			Name: `nil library`,
			Loader: lazysentry.LoaderFunc(func(context.Context) (lazysentry.Library, error) {
				return nil, nil
			}),
			Stage: `load`,
			Check: func(t *testing.T, err error) { require.ErrorContains(t, err, `nil library`) },
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			logs, logger := newLogBuffer()
			reg := lazysentry.NewHandlerRegistry()
			var original atomic.Int32
			reg.SetOnError(func(lazysentry.ErrorEvent) { original.Add(1) })

			f := lazysentry.New(
				lazysentry.WithLoader(tc.Loader),
				lazysentry.WithHandlers(reg),
				lazysentry.WithLogger(logger),
			)
			f.CaptureMessage(`queued`, nil)
			require.NoError(t, f.Init(lazysentry.Options{}))
			waitState(t, f, lazysentry.StateFailed)

			var loadErr *lazysentry.LoadError
			require.ErrorAs(t, f.Err(), &loadErr)
			require.Equal(t, tc.Stage, loadErr.Stage)
			tc.Check(t, f.Err())
			require.Equal(t, 1, logs.count(`err`))
			require.Contains(t, logs.String(), `"stage":"`+tc.Stage+`"`)

			// still queueing, with the capture handlers installed
			require.Empty(t, f.CaptureMessage(`after failure`, nil))
			require.Equal(t, 2, f.Pending())
			reg.DispatchError(lazysentry.ErrorEvent{Message: `lost`})
			require.Zero(t, original.Load())

			select {
			case <-f.Done():
				t.Fatal(`done should not be closed`)
			default:
			}
		})
	}
}

// countingLoop tracks whether the caller is running a task submitted via
// SubmitInternal.
type countingLoop struct {
	lazysentry.Loop
	submitted atomic.Int32
	inTask    atomic.Bool
}

func (x *countingLoop) SubmitInternal(fn func()) error {
	x.submitted.Add(1)
	return x.Loop.SubmitInternal(func() {
		x.inTask.Store(true)
		defer x.inTask.Store(false)
		fn()
	})
}

func TestFacade_WithLoop(t *testing.T) {
	loop := &countingLoop{Loop: newTestLoop(t)}
	rec := lazysentrytest.NewRecorder()
	f := lazysentry.New(
		lazysentry.WithLoader(rec),
		lazysentry.WithLoop(loop),
		lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
	)

	var onLoop atomic.Bool
	f.ConfigureScope(func(lazysentry.Scope) { onLoop.Store(loop.inTask.Load()) })

	require.NoError(t, f.Init(lazysentry.Options{}))
	waitDone(t, f)

	require.Equal(t, int32(1), loop.submitted.Load())
	require.True(t, onLoop.Load(), `replay should run on the loop`)
}

type refusingLoop struct{ err error }

func (x refusingLoop) SubmitInternal(func()) error { return x.err }

func TestFacade_WithLoop_refused(t *testing.T) {
	errTerminated := errors.New(`loop terminated`)
	f := lazysentry.New(
		lazysentry.WithLoader(lazysentrytest.NewRecorder()),
		lazysentry.WithLoop(refusingLoop{err: errTerminated}),
		lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
	)
	require.NoError(t, f.Init(lazysentry.Options{}))
	waitState(t, f, lazysentry.StateFailed)

	var loadErr *lazysentry.LoadError
	require.ErrorAs(t, f.Err(), &loadErr)
	require.Equal(t, `submit`, loadErr.Stage)
	require.ErrorIs(t, f.Err(), errTerminated)
}

type receiverFunc func(handler lazysentry.CatchHandler)

func (x receiverFunc) Deliver(handler lazysentry.CatchHandler) { x(handler) }

func TestFacade_deliversBoundary(t *testing.T) {
	for _, tc := range [...]struct {
		Name   string
		Opts   []lazysentrytest.Option
		Expect bool
	}{
		{Name: `with boundary`, Expect: true},
		{Name: `without boundary`, Opts: []lazysentrytest.Option{lazysentrytest.WithoutBoundary()}},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			var delivered []lazysentry.CatchHandler
			receiver := receiverFunc(func(handler lazysentry.CatchHandler) { delivered = append(delivered, handler) })
			f := lazysentry.New(
				lazysentry.WithLoader(lazysentrytest.NewRecorder(tc.Opts...)),
				lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
				lazysentry.WithBoundaryReceiver(receiver),
				lazysentry.WithBoundaryReceiver(receiver),
			)
			require.NoError(t, f.Init(lazysentry.Options{}))
			waitDone(t, f)
			if tc.Expect {
				require.Len(t, delivered, 2)
				require.NotNil(t, delivered[0])
			} else {
				require.Empty(t, delivered)
			}
		})
	}
}

func TestFacade_replayPanicIsAbsorbed(t *testing.T) {
	logs, logger := newLogBuffer()
	rec := lazysentrytest.NewRecorder()
	f := lazysentry.New(
		lazysentry.WithLoader(rec),
		lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
		lazysentry.WithLogger(logger),
	)
	f.WithScope(func(lazysentry.Scope) { panic(`bad scope callback`) })
	f.CaptureMessage(`survivor`, nil)

	require.NoError(t, f.Init(lazysentry.Options{}))
	waitDone(t, f)

	if diff := cmp.Diff([]string{lazysentrytest.OpWithScope, lazysentrytest.OpCaptureMessage}, rec.Ops()); diff != `` {
		t.Errorf("unexpected ops (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, logs.count(`err`))
	require.Contains(t, logs.String(), `bad scope callback`)
	require.Equal(t, 1, logs.count(`info`))
}

func TestFacade_concurrentCalls(t *testing.T) {
	const (
		goroutines = 8
		perG       = 200
	)

	gate, release := newGate(t)
	rec := lazysentrytest.NewRecorder(lazysentrytest.WithLoadGate(gate))
	f := lazysentry.New(
		lazysentry.WithLoader(rec),
		lazysentry.WithHandlers(lazysentry.NewHandlerRegistry()),
	)
	require.NoError(t, f.Init(lazysentry.Options{}))

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perG {
				if g == 0 && i == perG/2 {
					release()
				}
				f.CaptureMessage(fmt.Sprintf(`%d-%d`, g, i), nil)
			}
		}()
	}
	wg.Wait()
	waitDone(t, f)

	calls := rec.Calls()
	require.Len(t, calls, goroutines*perG)
	next := make([]int, goroutines)
	for _, call := range calls {
		var g, i int
		_, err := fmt.Sscanf(call.Args[0].(string), `%d-%d`, &g, &i)
		require.NoError(t, err)
		require.Equal(t, next[g], i, `goroutine %d out of order`, g)
		next[g]++
	}
}

func TestNew_invalidOption(t *testing.T) {
	require.PanicsWithValue(t, `lazysentry: lazysentry: loader must not be nil`, func() {
		lazysentry.New(lazysentry.WithLoader(nil))
	})
}

// libraryFunc implements lazysentry.Library.
type libraryFunc func(options lazysentry.Options) (lazysentry.Module, error)

func (f libraryFunc) Init(options lazysentry.Options) (lazysentry.Module, error) { return f(options) }

// libraryLoader returns a loader that resolves immediately to init.
func libraryLoader(init libraryFunc) lazysentry.Loader {
	return lazysentry.LoaderFunc(func(context.Context) (lazysentry.Library, error) { return init, nil })
}

type brokenBoundary struct{ *lazysentrytest.Recorder }

func (brokenBoundary) ErrorBoundary() lazysentry.CatchHandler { panic(`boundary unavailable`) }

func TestFacade_eventsDuringInitKeepArrivalOrder(t *testing.T) {
	reg := lazysentry.NewHandlerRegistry()
	var (
		mu         sync.Mutex
		errEvents  []string
		rejections []any
	)
	reg.SetOnError(func(event lazysentry.ErrorEvent) {
		mu.Lock()
		errEvents = append(errEvents, event.Message)
		mu.Unlock()
	})
	reg.SetOnUnhandledRejection(func(event lazysentry.RejectionEvent) {
		mu.Lock()
		rejections = append(rejections, event.Reason)
		mu.Unlock()
	})

	gate, release := newGate(t)
	rec := lazysentrytest.NewRecorder(lazysentrytest.WithInstallHandlers(reg))
	f := lazysentry.New(
		lazysentry.WithLoader(lazysentry.LoaderFunc(func(ctx context.Context) (lazysentry.Library, error) {
			<-gate
			return libraryFunc(func(options lazysentry.Options) (lazysentry.Module, error) {
				// a background goroutine crashing while the library initializes
				done := make(chan struct{})
				go func() {
					defer close(done)
					reg.DispatchError(lazysentry.ErrorEvent{Message: `e2`})
					reg.ReportRejection(`r2`)
				}()
				<-done
				return rec.Init(options)
			}), nil
		})),
		lazysentry.WithHandlers(reg),
	)

	require.NoError(t, f.Init(lazysentry.Options{}))
	reg.DispatchError(lazysentry.ErrorEvent{Message: `e1`})
	reg.ReportRejection(`r1`)
	release()
	waitDone(t, f)

	reg.DispatchError(lazysentry.ErrorEvent{Message: `e3`})

	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff([]string{`e1`, `e2`, `e3`}, errEvents); diff != `` {
		t.Errorf("unexpected error delivery order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{`r1`, `r2`}, rejections); diff != `` {
		t.Errorf("unexpected rejection delivery order (-want +got):\n%s", diff)
	}
	// replayed through the handlers the library installed
	require.Equal(t, []string{
		lazysentrytest.OpOnError,
		lazysentrytest.OpOnError,
		lazysentrytest.OpOnUnhandledRejection,
		lazysentrytest.OpOnUnhandledRejection,
		lazysentrytest.OpOnError,
	}, rec.Ops())
}

func TestFacade_replayGoexit(t *testing.T) {
	logs, logger := newLogBuffer()
	reg := lazysentry.NewHandlerRegistry()
	var original atomic.Int32
	reg.SetOnError(func(lazysentry.ErrorEvent) { original.Add(1) })

	f := lazysentry.New(
		lazysentry.WithLoader(lazysentrytest.NewRecorder()),
		lazysentry.WithHandlers(reg),
		lazysentry.WithLogger(logger),
	)
	f.ConfigureScope(func(lazysentry.Scope) { runtime.Goexit() })
	require.NoError(t, f.Init(lazysentry.Options{}))
	waitState(t, f, lazysentry.StateFailed)

	var loadErr *lazysentry.LoadError
	require.ErrorAs(t, f.Err(), &loadErr)
	require.Equal(t, `replay`, loadErr.Stage)
	require.ErrorContains(t, loadErr, `Goexit`)
	require.Equal(t, 1, logs.count(`err`))

	// still queueing, with the capture handlers installed
	require.Empty(t, f.CaptureMessage(`after failure`, nil))
	require.Equal(t, 1, f.Pending())
	reg.DispatchError(lazysentry.ErrorEvent{Message: `lost`})
	require.Zero(t, original.Load())
}
