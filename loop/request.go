package loop

import (
	"context"
)

// Request is an asynchronous operation in flight. Its completion callback
// always runs exactly once, on the loop.
type Request struct {
	cancel   context.CancelFunc
	kind     string
	canceled bool
	done     bool
}

// Cancel aborts the request. The completion callback still runs, reporting
// [ErrCanceled]. Has no effect if the request has already completed, or if r
// is nil.
func (r *Request) Cancel() {
	if r == nil || r.done || r.canceled {
		return
	}
	r.canceled = true
	r.cancel()
}

// Kind returns the kind of request, e.g. [KindResolve].
func (r *Request) Kind() string {
	return r.kind
}

// Done reports whether the completion callback has run.
func (r *Request) Done() bool {
	return r.done
}

// startRequest retains owner then runs work on a new goroutine. The function
// returned by work is the completion, which runs on the loop, after which
// owner is released. If the loop has been closed by the time work returns,
// the completion is dropped, but owner is still released.
func (l *Loop) startRequest(kind string, owner Owner, work func(ctx context.Context) func(canceled bool)) (*Request, error) {
	if l.state.Load() == StateClosed {
		return nil, ErrLoopClosed
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Request{cancel: cancel, kind: kind}

	if owner != nil {
		owner.Retain()
	}
	l.pending++

	go func() {
		complete := work(ctx)
		err := l.Submit(func() {
			l.pending--
			r.done = true
			cancel()
			l.safeExecute(func() { complete(r.canceled) })
			if owner != nil {
				l.safeExecute(owner.Release)
			}
		})
		if err != nil {
			cancel()
			if owner != nil {
				owner.Release()
			}
		}
	}()

	return r, nil
}
