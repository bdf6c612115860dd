package flood

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"runtime"
	"sync/atomic"

	"github.com/joeycumines/go-udpflood/loop"
	"github.com/joeycumines/logiface"
)

type (
	// Worker is a single send cycle, see the package docs.
	Worker struct {
		manager *Manager
		logger  *logiface.Logger[logiface.Event]
		loop    *loop.Loop
		rand    *rand.Rand

		term   *loop.Async
		send   *loop.Async
		wait   *loop.Timer
		socket *loop.UDP

		// at most one of these is in flight
		resolveReq *loop.Request
		sendReq    *loop.Request

		payload []byte

		// threaded only
		ready chan error
		done  chan struct{}

		err       atomic.Pointer[error]
		address   string
		refs      refCounter
		index     int
		port      int
		state     atomic.Int32
		destroyed atomic.Bool
		threaded  bool
	}

	// refCounter implements loop.Owner, calling free when the count
	// reaches zero.
	refCounter struct {
		free  func()
		n     atomic.Int64
		freed atomic.Int32
	}
)

var _ loop.Owner = (*refCounter)(nil)

func (x *refCounter) Retain() {
	x.n.Add(1)
}

func (x *refCounter) Release() {
	switch n := x.n.Add(-1); {
	case n == 0:
		x.freed.Add(1)
		if x.free != nil {
			x.free()
		}
	case n < 0:
		panic(`flood: worker released too many times`)
	}
}

// Index returns the 1-based index of the worker.
func (w *Worker) Index() int {
	return w.index
}

// Threaded reports whether the worker runs on its own OS thread.
func (w *Worker) Threaded() bool {
	return w.threaded
}

// State returns the current state. Safe to call from any goroutine.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Err returns the error that halted the worker, or nil. Safe to call from
// any goroutine.
func (w *Worker) Err() error {
	if p := w.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Refs returns the current reference count. Safe to call from any
// goroutine.
func (w *Worker) Refs() int64 {
	return w.refs.n.Load()
}

func (w *Worker) free() {
	w.payload = nil
	w.logger.Trace().Log(`worker released`)
}

func (w *Worker) stopped() bool {
	return w.State() == StateStopped
}

func (w *Worker) setState(to State) {
	from := w.State()
	if from == to {
		return
	}
	if !canTransition(from, to) {
		w.logger.Debug().
			Stringer(`from`, from).
			Stringer(`to`, to).
			Log(`ignoring invalid state transition`)
		return
	}
	w.state.Store(int32(to))
	w.logger.Trace().
		Stringer(`from`, from).
		Stringer(`to`, to).
		Log(`state changed`)
}

// init opens the handles on l, then triggers the first send cycle. On
// failure, any handles already open are closed, and the state is failed.
func (w *Worker) init(l *loop.Loop) (err error) {
	w.loop = l

	var opened []loop.Handle
	defer func() {
		if err == nil {
			return
		}
		for _, h := range opened {
			h.Close(nil)
		}
		w.logger.Err().Err(err).Log(`worker init failed`)
		w.setState(StateFailed)
	}()

	if err = w.manager.hooks.step(w, `term`); err != nil {
		return w.initErr(`term`, err)
	}
	if w.term, err = loop.NewAsync(l, &w.refs, w.onTerminate); err != nil {
		return w.initErr(`term`, err)
	}
	opened = append(opened, w.term)

	if err = w.manager.hooks.step(w, `send`); err != nil {
		return w.initErr(`send`, err)
	}
	if w.send, err = loop.NewAsync(l, &w.refs, w.onSend); err != nil {
		return w.initErr(`send`, err)
	}
	opened = append(opened, w.send)

	if err = w.manager.hooks.step(w, `wait`); err != nil {
		return w.initErr(`wait`, err)
	}
	if w.wait, err = loop.NewTimer(l, &w.refs); err != nil {
		return w.initErr(`wait`, err)
	}
	opened = append(opened, w.wait)

	if err = w.manager.hooks.step(w, `socket`); err != nil {
		return w.initErr(`socket`, err)
	}
	if w.socket, err = loop.NewUDP(l, &w.refs, w.manager.template.Family().SocketNetwork(), w.manager.udpOptions...); err != nil {
		return w.initErr(`socket`, err)
	}
	opened = append(opened, w.socket)

	if err = w.send.Send(); err != nil {
		return w.initErr(`send`, err)
	}

	w.setState(StateReady)
	return nil
}

func (w *Worker) initErr(step string, err error) error {
	return fmt.Errorf(`flood: worker #%d: init %s: %w`, w.index, step, err)
}

// run is the body of a threaded worker, which owns a private loop.
func (w *Worker) run() {
	defer close(w.done)
	// the reference of this goroutine, retained by the creator
	defer w.refs.Release()

	signaled := false
	signal := func(err error) {
		if !signaled {
			signaled = true
			w.ready <- err
		}
	}
	defer func() { signal(ErrWorkerExited) }()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.manager.cpuAffinity {
		if cpu, err := pinThread(w.index); err != nil {
			w.logger.Warning().Err(err).Log(`cpu affinity not applied`)
		} else {
			w.logger.Trace().Int(`cpu`, cpu).Log(`cpu affinity applied`)
		}
	}

	l, err := loop.New(w.manager.loopOptions(w.index)...)
	if err != nil {
		err = w.initErr(`loop`, err)
		w.logger.Err().Err(err).Log(`worker init failed`)
		w.setState(StateFailed)
		signal(err)
		return
	}

	if err := w.init(l); err != nil {
		signal(err)
		// drains the handles closed by init
		if err := l.Close(); err != nil {
			w.logger.Err().Err(err).Log(`loop close incomplete`)
		}
		return
	}

	signal(nil)

	if err := l.Run(context.Background()); err != nil {
		w.logger.Err().Err(err).Log(`loop run failed`)
	}
	if err := l.Close(); err != nil {
		w.logger.Err().Err(err).Log(`loop close incomplete`)
	}
}

func (w *Worker) onTerminate(*loop.Async) {
	if w.threaded {
		w.loop.Stop()
	}

	w.setState(StateStopped)

	w.sendReq.Cancel()
	w.resolveReq.Cancel()

	w.term.Close(nil)
	w.send.Close(nil)
	w.wait.Close(nil)
	w.socket.Close(nil)
}

func (w *Worker) onSend(*loop.Async) {
	if w.stopped() || w.Err() != nil {
		return
	}

	m := w.manager
	w.address = m.template.Materialize(w.rand)
	w.port = m.ports.Pick(w.rand)

	req, err := w.loop.Resolve(&w.refs, m.template.Family().ResolveNetwork(), w.address, uint16(w.port), w.onResolved)
	if err != nil {
		w.halt(`resolve`, err)
		return
	}
	w.resolveReq = req
}

func (w *Worker) onResolved(addr netip.AddrPort, err error) {
	w.resolveReq = nil

	if w.stopped() || errors.Is(err, loop.ErrCanceled) {
		return
	}
	if err != nil {
		w.halt(`resolve`, err)
		return
	}

	size := w.manager.sizes.Pick(w.rand)
	buf := w.payload[:size]
	fill(w.rand, buf)

	w.traceSend(size)

	req, err := w.socket.Send(buf, addr, w.onSent)
	if err != nil {
		w.halt(`send`, err)
		return
	}
	w.sendReq = req
}

func (w *Worker) onSent(n int, err error) {
	w.sendReq = nil

	if w.stopped() || errors.Is(err, loop.ErrCanceled) {
		return
	}
	if err != nil {
		w.halt(`send`, err)
		return
	}

	m := w.manager
	m.stats.AddSent(uint64(n))
	m.hooks.sent(w)

	if m.config.Timeout == 0 {
		if err := w.send.Send(); err != nil {
			w.halt(`send`, err)
		}
		return
	}

	w.logger.Trace().Dur(`timeout`, m.config.Timeout).Log(`waiting`)

	if err := w.wait.Start(m.config.Timeout, w.onTimeout); err != nil {
		w.halt(`wait`, err)
	}
}

func (w *Worker) onTimeout(*loop.Timer) {
	if w.stopped() {
		return
	}
	if err := w.send.Send(); err != nil {
		w.halt(`send`, err)
	}
}

// halt records the first error, after which the worker sends nothing more.
func (w *Worker) halt(op string, err error) {
	err = fmt.Errorf(`flood: worker #%d: %s %s port %d: %w`, w.index, op, w.address, w.port, err)
	w.err.CompareAndSwap(nil, &err)
	w.logger.Err().
		Err(err).
		Str(`op`, op).
		Str(`address`, w.address).
		Int(`port`, w.port).
		Log(`worker halted`)
}

func (w *Worker) traceSend(size int) {
	b := w.logger.Trace()
	if !b.Enabled() {
		return
	}
	if _, ok := w.manager.traceLimiter.Allow(w.index); !ok {
		b.Release()
		return
	}
	b.Int(`bytes`, size).
		Str(`address`, w.address).
		Int(`port`, w.port).
		Log(`sending datagram`)
}
