package loop

import (
	"container/heap"
	"context"
	"fmt"
	"net"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// closeRetryInterval bounds how long each drain iteration of Close waits for
// outstanding work.
const closeRetryInterval = time.Millisecond

type (
	// Loop is a single-threaded callback runtime. See the package docs.
	Loop struct { // betteralign:ignore
		logger   *logiface.Logger[logiface.Event]
		resolver Resolver
		handles  map[*handle]struct{}
		wake     chan struct{}
		sleep    *time.Timer
		name     string
		ingress  ingress
		timers   timerHeap
		closing  []*handle
		batch    []func()

		state       fastState
		goroutineID atomic.Uint64
		stopFlag    atomic.Bool

		id           uint64
		timerSeq     uint64
		pending      int
		closeRetries int
	}

	// ingress is the thread-safe task queue, drained once per iteration.
	ingress struct {
		tasks  []func()
		mu     sync.Mutex
		closed bool
	}

	timerEntry struct {
		when  time.Time
		timer *Timer
		seq   uint64
		gen   uint64
	}

	// timerHeap is a min-heap of timer entries, ordered by deadline then
	// insertion. Entries are invalidated lazily, see timerEntry.live.
	timerHeap []timerEntry
)

var loopIDCounter atomic.Uint64

// New creates a new loop, which will not do anything until run.
func New(opts ...Option) (*Loop, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	id := loopIDCounter.Add(1)

	l := &Loop{
		logger:       cfg.logger,
		resolver:     cfg.resolver,
		handles:      make(map[*handle]struct{}),
		wake:         make(chan struct{}, 1),
		sleep:        time.NewTimer(time.Hour),
		name:         cfg.name,
		id:           id,
		closeRetries: cfg.closeRetries,
	}
	l.sleep.Stop()

	if l.name == `` {
		l.name = fmt.Sprintf(`loop-%d`, id)
	}
	if l.resolver == nil {
		l.resolver = net.DefaultResolver
	}

	return l, nil
}

// Name returns the label of the loop, used in log output.
func (l *Loop) Name() string {
	return l.name
}

// State returns the current state of the loop. Safe to call from any
// goroutine.
func (l *Loop) State() State {
	return l.state.Load()
}

// Run processes callbacks on the calling goroutine, which is locked to its
// OS thread for the duration, until one of:
//
//   - Stop is called (Run returns nil)
//   - ctx is canceled (Run returns ctx.Err())
//   - nothing remains that could produce a callback (Run returns nil)
//
// Run may be called again after it returns, until the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	if l.isLoopThread() {
		return ErrReentrantRun
	}

	if !l.state.TryTransition(StateAwake, StateRunning) {
		switch l.state.Load() {
		case StateClosing, StateClosed:
			return ErrLoopClosed
		default:
			return ErrLoopAlreadyRunning
		}
	}
	defer l.state.TryTransition(StateRunning, StateAwake)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.goroutineID.Store(getGoroutineID())
	defer l.goroutineID.Store(0)

	// wakes the loop on cancellation
	ctxDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			l.wakeup()
		case <-ctxDone:
		}
	}()
	defer close(ctxDone)

	// like uv_run, a stop request is consumed by the run it stops
	defer l.stopFlag.Store(false)

	for !l.stopFlag.Load() && l.alive() {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.tick(true)
	}

	return nil
}

// Stop causes Run to return after the current iteration. Safe to call from
// any goroutine. Has no effect on a loop that is not running, other than
// stopping the next run before its first iteration.
func (l *Loop) Stop() {
	l.stopFlag.Store(true)
	l.wakeup()
}

// Submit queues fn to run on the loop, during its next iteration. Safe to
// call from any goroutine.
func (l *Loop) Submit(fn func()) error {
	if fn == nil {
		return nil
	}
	if !l.ingress.push(fn) {
		return ErrLoopClosed
	}
	l.wakeup()
	return nil
}

// Close drains the loop, then marks it closed. Callbacks (close callbacks,
// request completions, due timers) continue to run on the calling goroutine
// while draining. The drain is retried at most the configured number of
// times (see [WithCloseRetries]), after which any handles still open are
// logged and reported as an [*UnclosedError].
//
// Close must not be called while the loop is running.
func (l *Loop) Close() error {
	if !l.state.TryTransition(StateAwake, StateClosing) {
		switch l.state.Load() {
		case StateClosing, StateClosed:
			return ErrLoopClosed
		default:
			return ErrLoopRunning
		}
	}

	l.goroutineID.Store(getGoroutineID())
	defer l.goroutineID.Store(0)

	for i := 0; i < l.closeRetries && l.alive(); i++ {
		l.tick(false)
		l.stopFlag.Store(false)
		if !l.alive() || !l.progressible() {
			break
		}
		l.wait(closeRetryInterval)
	}

	// anything submitted after this point is refused
	for _, fn := range l.ingress.close() {
		l.safeExecute(fn)
	}
	l.runClosing()

	l.state.Store(StateClosed)
	l.sleep.Stop()

	if len(l.handles) == 0 && l.pending == 0 {
		return nil
	}

	err := &UnclosedError{Requests: l.pending}
	for h := range l.handles {
		err.Handles = append(err.Handles, h.kind)
	}
	slices.Sort(err.Handles)
	for _, kind := range err.Handles {
		l.logger.Warning().
			Str(`loop`, l.name).
			Str(`handle`, kind).
			Log(`unclosed handle`)
	}
	if err.Requests != 0 {
		l.logger.Warning().
			Str(`loop`, l.name).
			Int(`requests`, err.Requests).
			Log(`pending requests`)
	}
	return err
}

// alive reports whether anything remains that could produce a callback.
func (l *Loop) alive() bool {
	return len(l.handles) != 0 ||
		l.pending != 0 ||
		len(l.closing) != 0 ||
		l.ingress.len() != 0
}

// progressible is false if only idle handles remain, which nothing can close.
func (l *Loop) progressible() bool {
	if l.pending != 0 || len(l.closing) != 0 || l.ingress.len() != 0 {
		return true
	}
	_, ok := l.nextTimer()
	return ok
}

// tick performs a single iteration: due timers, queued tasks, then close
// callbacks. If block is true, it then waits for more work.
func (l *Loop) tick(block bool) {
	l.runTimers()
	l.runQueue()
	l.runClosing()
	if block {
		l.wait(-1)
	}
}

// wait blocks until woken, or the next timer is due, or limit elapses (if
// limit is non-negative).
func (l *Loop) wait(limit time.Duration) {
	if l.stopFlag.Load() || len(l.closing) != 0 || l.ingress.len() != 0 || !l.alive() {
		return
	}

	d := limit
	if when, ok := l.nextTimer(); ok {
		until := max(time.Until(when), 0)
		if d < 0 || until < d {
			d = until
		}
	}

	switch {
	case d < 0:
		<-l.wake
	case d == 0:
	default:
		l.sleep.Reset(d)
		select {
		case <-l.wake:
		case <-l.sleep.C:
		}
		l.sleep.Stop()
	}
}

func (l *Loop) wakeup() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) runQueue() {
	tasks := l.ingress.swap(l.batch)
	for i, fn := range tasks {
		l.safeExecute(fn)
		tasks[i] = nil
	}
	l.batch = tasks
}

// runTimers fires every timer due as of the start of the call. Timers
// re-armed by callbacks are left for the next iteration.
func (l *Loop) runTimers() {
	now := time.Now()
	for n := len(l.timers); n > 0; n-- {
		when, ok := l.nextTimer()
		if !ok || when.After(now) {
			return
		}
		e := heap.Pop(&l.timers).(timerEntry)
		e.timer.fire()
	}
}

// nextTimer discards stale entries, returning the earliest live deadline.
func (l *Loop) nextTimer() (time.Time, bool) {
	for len(l.timers) != 0 {
		if e := l.timers[0]; e.live() {
			return e.when, true
		}
		heap.Pop(&l.timers)
	}
	return time.Time{}, false
}

func (l *Loop) runClosing() {
	for len(l.closing) != 0 {
		handles := l.closing
		l.closing = nil
		for _, h := range handles {
			h.finishClose()
		}
	}
}

// safeExecute executes fn with panic recovery.
func (l *Loop) safeExecute(fn func()) {
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Err().
				Str(`loop`, l.name).
				Str(`panic`, fmt.Sprint(r)).
				Log(`callback panicked`)
		}
	}()

	fn()
}

// isLoopThread checks if we're on the loop goroutine.
func (l *Loop) isLoopThread() bool {
	loopID := l.goroutineID.Load()
	if loopID == 0 {
		return false
	}
	return getGoroutineID() == loopID
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}

func (x *ingress) push(fn func()) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return false
	}
	x.tasks = append(x.tasks, fn)
	return true
}

// swap returns the queued tasks, replacing the queue with buf[:0].
func (x *ingress) swap(buf []func()) []func() {
	x.mu.Lock()
	defer x.mu.Unlock()
	tasks := x.tasks
	x.tasks = buf[:0]
	return tasks
}

func (x *ingress) len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.tasks)
}

// close refuses further tasks, returning any still queued.
func (x *ingress) close() []func() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	tasks := x.tasks
	x.tasks = nil
	return tasks
}

// live is false if the timer was stopped or re-armed since the entry was pushed.
func (e timerEntry) live() bool {
	return e.timer.active && e.timer.gen == e.gen
}

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timerEntry))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = timerEntry{}
	*h = old[:n-1]
	return x
}
