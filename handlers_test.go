package lazysentry_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/joeycumines/go-lazysentry"
	"github.com/stretchr/testify/require"
)

func TestHandlerRegistry_dispatchEmpty(t *testing.T) {
	var reg lazysentry.HandlerRegistry
	reg.DispatchError(lazysentry.ErrorEvent{Message: `ignored`})
	reg.DispatchRejection(lazysentry.RejectionEvent{Reason: `ignored`})
	reg.ReportRejection(`ignored`)
	require.Nil(t, reg.OnError())
	require.Nil(t, reg.OnUnhandledRejection())
}

func TestHandlerRegistry_overrideRestore(t *testing.T) {
	reg := lazysentry.NewHandlerRegistry()
	var got []string
	reg.SetOnError(func(event lazysentry.ErrorEvent) { got = append(got, `original error: `+event.Message) })
	reg.SetOnUnhandledRejection(func(event lazysentry.RejectionEvent) { got = append(got, `original rejection`) })

	snapshot := reg.Snapshot()
	require.NotNil(t, snapshot.OnError)
	require.NotNil(t, snapshot.OnUnhandledRejection)

	prev := reg.Override(
		func(event lazysentry.ErrorEvent) { got = append(got, `override error: `+event.Message) },
		nil,
	)
	require.NotNil(t, prev.OnError)
	require.NotNil(t, prev.OnUnhandledRejection)

	reg.DispatchError(lazysentry.ErrorEvent{Message: `a`})
	reg.DispatchRejection(lazysentry.RejectionEvent{})

	reg.Restore(snapshot)
	reg.DispatchError(lazysentry.ErrorEvent{Message: `b`})
	reg.DispatchRejection(lazysentry.RejectionEvent{})

	require.Equal(t, []string{
		`override error: a`,
		`original error: b`,
		`original rejection`,
	}, got)
}

func TestHandlerRegistry_handlerMayReenter(t *testing.T) {
	reg := lazysentry.NewHandlerRegistry()
	var replaced bool
	reg.SetOnError(func(lazysentry.ErrorEvent) {
		// would deadlock if invoked with the lock held
		reg.SetOnError(func(lazysentry.ErrorEvent) { replaced = true })
	})
	reg.DispatchError(lazysentry.ErrorEvent{})
	reg.DispatchError(lazysentry.ErrorEvent{})
	require.True(t, replaced)
}

func TestHandlerRegistry_ReportRejection(t *testing.T) {
	reg := lazysentry.NewHandlerRegistry()
	var got []lazysentry.RejectionEvent
	reg.SetOnUnhandledRejection(func(event lazysentry.RejectionEvent) { got = append(got, event) })
	reject := reg.ReportRejection
	reject(`reason`)
	require.Equal(t, []lazysentry.RejectionEvent{{Reason: `reason`}}, got)
}

func TestHandlerRegistry_Recover(t *testing.T) {
	errBoom := errors.New(`boom`)
	for _, tc := range [...]struct {
		Name    string
		Value   any
		Message string
		Check   func(t *testing.T, err error)
	}{
		{
			Name:    `error`,
			Value:   errBoom,
			Message: `boom`,
			Check:   func(t *testing.T, err error) { require.Same(t, errBoom, err) },
		},
		{
			Name:    `string`,
			Value:   `kaboom`,
			Message: `kaboom`,
			Check:   func(t *testing.T, err error) { require.EqualError(t, err, `panic: kaboom`) },
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			reg := lazysentry.NewHandlerRegistry()
			var got []lazysentry.ErrorEvent
			reg.SetOnError(func(event lazysentry.ErrorEvent) { got = append(got, event) })

			func() {
				defer reg.Recover()
				panic(tc.Value)
			}()

			require.Len(t, got, 1)
			require.Equal(t, tc.Message, got[0].Message)
			tc.Check(t, got[0].Err)
			require.Equal(t, `handlers_test.go`, filepath.Base(got[0].Source))
			require.Positive(t, got[0].Line)
		})
	}

	t.Run(`no panic`, func(t *testing.T) {
		reg := lazysentry.NewHandlerRegistry()
		var called bool
		reg.SetOnError(func(lazysentry.ErrorEvent) { called = true })
		func() {
			defer reg.Recover()
		}()
		require.False(t, called)
	})

	t.Run(`goroutine`, func(t *testing.T) {
		reg := lazysentry.NewHandlerRegistry()
		events := make(chan lazysentry.ErrorEvent, 1)
		reg.SetOnError(func(event lazysentry.ErrorEvent) { events <- event })
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer reg.Recover()
			var m map[string]int
			m[`nil map`]++
		}()
		wg.Wait()
		event := <-events
		var runtimeErr interface{ RuntimeError() }
		require.ErrorAs(t, event.Err, &runtimeErr)
	})
}
