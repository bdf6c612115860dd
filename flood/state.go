package flood

// State is the lifecycle state of a [Worker].
//
//	StateUnknown → StateReady   [handles initialized, first send triggered]
//	StateUnknown → StateFailed  [handle initialization failed]
//	StateReady → StateStopped   [terminate processed]
type State int32

const (
	StateUnknown State = iota
	StateReady
	StateFailed
	StateStopped
)

func (x State) String() string {
	switch x {
	case StateUnknown:
		return `unknown`
	case StateReady:
		return `ready`
	case StateFailed:
		return `failed`
	case StateStopped:
		return `stopped`
	default:
		return `invalid`
	}
}

// canTransition reports whether from → to is a valid transition.
func canTransition(from, to State) bool {
	switch from {
	case StateUnknown:
		return to == StateReady || to == StateFailed
	case StateReady:
		return to == StateStopped
	default:
		return false
	}
}
