// Package loop implements a small callback-driven I/O runtime, in the style
// of libuv, used to drive send cycles without blocking.
//
// A [Loop] owns a set of handles ([Async], [Timer], [UDP]) and in-flight
// requests ([Request]). All callbacks for a given loop run on the goroutine
// that calls [Loop.Run] (or [Loop.Close]), one at a time. Unless documented
// otherwise, handle and request methods must only be called from that
// goroutine, or from the goroutine that will later run the loop, before it
// starts.
//
// Every handle and request is bound to an [Owner]. The loop retains the owner
// when the handle is bound, or the request is issued, and releases it exactly
// once: after the handle's close callback has run, or after the request's
// completion callback has run. Completion callbacks are always delivered,
// including for canceled requests, which complete with [ErrCanceled].
//
// Closing a loop is a bounded drain: [Loop.Close] keeps iterating until
// nothing remains, up to a configurable number of retries, then reports any
// handles still open as an [*UnclosedError].
package loop
