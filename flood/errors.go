package flood

import (
	"errors"
)

var (
	// ErrInvalidConfig is wrapped by every [Config.Validate] failure.
	ErrInvalidConfig = errors.New(`flood: invalid config`)

	// ErrInvalidAddress indicates an address template that is not
	// exclusively IPv4 (dots) or IPv6 (colons) shaped.
	ErrInvalidAddress = errors.New(`flood: IPv4 or IPv6 address is required`)

	// ErrWorkerExited is returned by [Manager.CreateThreaded] if a threaded
	// worker exits without reporting its readiness.
	ErrWorkerExited = errors.New(`flood: worker exited during startup`)
)
