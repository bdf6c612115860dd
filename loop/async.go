package loop

import (
	"sync/atomic"
)

// Async is a handle that wakes its loop from any goroutine, to run a
// callback on the loop.
type Async struct {
	fn func(*Async)
	handle
	pending atomic.Bool
}

// NewAsync binds a new async handle to l, retaining owner. The callback fn
// runs on the loop once per batch of Send calls.
func NewAsync(l *Loop, owner Owner, fn func(*Async)) (*Async, error) {
	a := &Async{fn: fn}
	if err := l.bind(&a.handle, KindAsync, owner); err != nil {
		return nil, err
	}
	return a, nil
}

// Send schedules the callback. Safe to call from any goroutine. Calls made
// before the callback has started are coalesced into a single invocation.
// The callback will not run if the handle is closed first.
func (a *Async) Send() error {
	if !a.pending.CompareAndSwap(false, true) {
		return nil
	}
	if err := a.loop.Submit(a.dispatch); err != nil {
		a.pending.Store(false)
		return err
	}
	return nil
}

func (a *Async) dispatch() {
	a.pending.Store(false)
	if a.closing || a.fn == nil {
		return
	}
	a.fn(a)
}
