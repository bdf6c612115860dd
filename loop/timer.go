package loop

import (
	"container/heap"
	"errors"
	"time"
)

// Timer is a one-shot timer handle.
type Timer struct {
	cb func(*Timer)
	handle
	gen    uint64
	active bool
}

// NewTimer binds a new, inactive timer to l, retaining owner.
func NewTimer(l *Loop, owner Owner) (*Timer, error) {
	t := new(Timer)
	if err := l.bind(&t.handle, KindTimer, owner); err != nil {
		return nil, err
	}
	t.onClose = t.Stop
	return t, nil
}

// Start arms the timer to call cb once, after delay. Any previous schedule
// is replaced. A delay of zero fires on the next loop iteration.
func (t *Timer) Start(delay time.Duration, cb func(*Timer)) error {
	if t.closing {
		return ErrHandleClosing
	}
	if cb == nil {
		return errors.New(`loop: nil timer callback`)
	}
	if delay < 0 {
		delay = 0
	}
	t.gen++
	t.active = true
	t.cb = cb
	t.loop.timerSeq++
	heap.Push(&t.loop.timers, timerEntry{
		when:  time.Now().Add(delay),
		timer: t,
		seq:   t.loop.timerSeq,
		gen:   t.gen,
	})
	return nil
}

// Stop disarms the timer. It is safe to call on an inactive timer.
func (t *Timer) Stop() {
	t.gen++
	t.active = false
}

// Active reports whether the timer is armed.
func (t *Timer) Active() bool {
	return t.active
}

func (t *Timer) fire() {
	t.active = false
	cb := t.cb
	t.loop.safeExecute(func() { cb(t) })
}
