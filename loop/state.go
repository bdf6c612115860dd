package loop

import (
	"sync/atomic"
)

// State represents the current state of a [Loop].
//
//	StateAwake → StateRunning   [Run]
//	StateRunning → StateAwake   [Run returns]
//	StateAwake → StateClosing   [Close]
//	StateClosing → StateClosed  [drain complete]
//	StateClosed → (terminal)
type State uint32

const (
	// StateAwake indicates the loop is not currently running, and may be run or closed.
	StateAwake State = iota
	// StateRunning indicates Run is in progress.
	StateRunning
	// StateClosing indicates Close is draining the loop.
	StateClosing
	// StateClosed indicates the loop has been closed.
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine.
type fastState struct {
	v atomic.Uint32
}

func (s *fastState) Load() State {
	return State(s.v.Load())
}

// Store should only be used for irreversible transitions.
func (s *fastState) Store(state State) {
	s.v.Store(uint32(state))
}

func (s *fastState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
