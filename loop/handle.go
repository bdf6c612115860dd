package loop

// Handle and request kinds, as reported by [Handle.Kind], [Request.Kind],
// and [UnclosedError].
const (
	KindAsync   = `async`
	KindTimer   = `timer`
	KindUDP     = `udp`
	KindResolve = `resolve`
	KindUDPSend = `udp_send`
)

type (
	// Owner is retained by every handle bound to it, and every request issued
	// on its behalf, and released exactly once when each completes.
	Owner interface {
		Retain()
		Release()
	}

	// Handle is implemented by [*Async], [*Timer], and [*UDP].
	Handle interface {
		Close(cb func())
		IsClosing() bool
		Kind() string
		Loop() *Loop
	}

	// handle implements the lifecycle common to all handle types.
	handle struct {
		loop    *Loop
		owner   Owner
		closeCb func()
		// onClose runs synchronously within Close, e.g. to stop a timer
		onClose func()
		kind    string
		closing bool
	}
)

var (
	_ Handle = (*Async)(nil)
	_ Handle = (*Timer)(nil)
	_ Handle = (*UDP)(nil)
)

func (l *Loop) bind(h *handle, kind string, owner Owner) error {
	if l.state.Load() == StateClosed {
		return ErrLoopClosed
	}
	h.loop = l
	h.kind = kind
	h.owner = owner
	if owner != nil {
		owner.Retain()
	}
	l.handles[h] = struct{}{}
	return nil
}

// Close requests that the handle be closed. The handle stops producing
// callbacks immediately. The optional cb runs during a later phase of the
// loop, after which the handle's owner is released. Calling Close on a
// handle that is already closing has no effect.
func (h *handle) Close(cb func()) {
	if h.closing {
		return
	}
	h.closing = true
	h.closeCb = cb
	if h.onClose != nil {
		h.onClose()
	}
	if h.loop.state.Load() == StateClosed {
		// nothing will drain the close list
		h.finishClose()
		return
	}
	h.loop.closing = append(h.loop.closing, h)
}

// IsClosing reports whether Close has been called.
func (h *handle) IsClosing() bool {
	return h.closing
}

// Kind returns the kind of handle, e.g. [KindUDP].
func (h *handle) Kind() string {
	return h.kind
}

// Loop returns the loop the handle is bound to.
func (h *handle) Loop() *Loop {
	return h.loop
}

func (h *handle) finishClose() {
	delete(h.loop.handles, h)
	h.loop.safeExecute(h.closeCb)
	h.closeCb = nil
	if h.owner != nil {
		h.loop.safeExecute(h.owner.Release)
	}
}
