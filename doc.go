// Package lazysentry defers loading a monitoring library, such as Sentry,
// until after an application's critical path, while giving callers an API
// that behaves as if the library were already loaded.
//
// # Architecture
//
// A [Facade] exposes the library's call surface ([Operations]) as
// immediately callable methods. Before the library has loaded, each call is
// queued as a replay thunk, and capture operations return an empty
// [EventID]. [Facade.Init] starts a [Loader] on its own goroutine, and
// replaces both slots of a [HandlerRegistry] (uncaught errors, unhandled
// rejections) with handlers that only queue events.
//
// Load resolution happens at most once. It restores the original handlers,
// initializes the [Library], binds the resulting [Module] as the facade's
// implementation, delivers the module's crash boundary logic to each
// [BoundaryReceiver], and then replays, in order: queued calls, queued error
// events, and queued rejection events. Each queue is replayed in arrival
// order; there is no ordering guarantee across queues.
//
// # Event Loop Integration
//
// If configured [WithLoop] (e.g. with an *eventloop.Loop from
// github.com/joeycumines/go-eventloop), resolution is submitted to the loop,
// via SubmitInternal, so that it runs on the loop goroutine, serialized with
// the application's own tasks. Otherwise it runs on the loader goroutine.
//
// # Failure
//
// If loading fails there is no retry. The facade stays in queuing mode for
// the rest of its lifetime, the capturing handlers stay installed, and
// queued calls accumulate without bound. The failure is logged, and is
// available via [Facade.Err] and [Facade.State].
//
// # Related Packages
//
//   - boundary: a crash boundary around a render tree, reporting through the
//     facade, and delegating to the real library's boundary once loaded
//   - sentryloader: a [Loader] backed by github.com/getsentry/sentry-go
//   - lazysentrytest: an in-memory recording [Library], for tests
package lazysentry
