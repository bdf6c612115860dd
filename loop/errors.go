package loop

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that is already running.
	ErrLoopAlreadyRunning = errors.New("loop: loop is already running")

	// ErrLoopRunning is returned when Close is called while the loop is running.
	ErrLoopRunning = errors.New("loop: loop is running")

	// ErrLoopClosed is returned when operations are attempted on a closed loop.
	ErrLoopClosed = errors.New("loop: loop has been closed")

	// ErrReentrantRun is returned when Run is called from within the loop itself.
	ErrReentrantRun = errors.New("loop: cannot call Run from within the loop")

	// ErrHandleClosing is returned when operations are attempted on a closing handle.
	ErrHandleClosing = errors.New("loop: handle is closing")

	// ErrCanceled is delivered to the completion callback of a canceled request.
	ErrCanceled = errors.New("loop: operation canceled")

	// ErrNoAddress indicates a resolve completed without any usable address.
	ErrNoAddress = errors.New("loop: no address found")
)

type (
	// UnclosedError is returned by [Loop.Close] when the drain gave up with
	// handles or requests still outstanding.
	UnclosedError struct {
		// Handles lists the kind of each handle left open, e.g. "udp".
		Handles []string
		// Requests is the number of requests still in flight.
		Requests int
	}

	// ResolveError wraps a failed address lookup.
	ResolveError struct {
		Err  error
		Host string
	}
)

func (e *UnclosedError) Error() string {
	var b strings.Builder
	b.WriteString("loop: close incomplete")
	if len(e.Handles) != 0 {
		fmt.Fprintf(&b, ": %d unclosed handle(s) [%s]", len(e.Handles), strings.Join(e.Handles, ", "))
	}
	if e.Requests != 0 {
		fmt.Fprintf(&b, ": %d pending request(s)", e.Requests)
	}
	return b.String()
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("loop: resolve %q: %v", e.Host, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
