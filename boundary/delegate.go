package boundary

import (
	"sync/atomic"

	"github.com/joeycumines/go-lazysentry"
)

// Delegate holds the real library's crash boundary catch logic, once it has
// been delivered. Boundaries consult it on every catch, so instances created
// before the library loaded switch over without being remounted.
//
// The zero value is ready to use. It implements
// [lazysentry.BoundaryReceiver], and may be passed to
// lazysentry.WithBoundaryReceiver.
type Delegate struct {
	handler atomic.Pointer[lazysentry.CatchHandler]
}

var (
	_ lazysentry.BoundaryReceiver = (*Delegate)(nil)

	defaultDelegate Delegate
)

// DefaultDelegate returns the delegate used by boundaries that don't
// configure one.
func DefaultDelegate() *Delegate { return &defaultDelegate }

// Deliver stores handler. A nil handler is ignored.
func (x *Delegate) Deliver(handler lazysentry.CatchHandler) {
	if handler != nil {
		x.handler.Store(&handler)
	}
}

// Handler returns the delivered catch logic, or nil.
func (x *Delegate) Handler() lazysentry.CatchHandler {
	if h := x.handler.Load(); h != nil {
		return *h
	}
	return nil
}
