package flood

import (
	"errors"
	"fmt"
	"time"
)

// Defaults and limits.
const (
	DefaultAddress = `127.0.0.1`
	DefaultPort    = 55555
	DefaultSize    = 4096
	DefaultTimeout = time.Duration(0)
	DefaultWorkers = 1

	MinPort    = 1
	MaxPort    = 65535
	MinSize    = 1
	MaxSize    = 4096
	MinTimeout = time.Duration(0)
	MaxTimeout = time.Hour
	MinWorkers = 1
	MaxWorkers = 1024
)

// Config is the immutable configuration snapshot shared by all workers.
type Config struct {
	// Address is the destination address template, where each '*' is
	// replaced by a random number (decimal octet for IPv4, hex group for
	// IPv6), on every send.
	Address string
	PortMin int
	PortMax int
	SizeMin int
	SizeMax int
	// Timeout is the pause between a completed send and the next, per
	// worker. Millisecond resolution.
	Timeout time.Duration
	Workers int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Address: DefaultAddress,
		PortMin: DefaultPort,
		PortMax: DefaultPort,
		SizeMin: DefaultSize,
		SizeMax: DefaultSize,
		Timeout: DefaultTimeout,
		Workers: DefaultWorkers,
	}
}

// Validate checks every field against the limits, returning all violations.
// Each wraps [ErrInvalidConfig].
func (x Config) Validate() error {
	var errs []error
	if !(MinPort <= x.PortMin && x.PortMin <= x.PortMax && x.PortMax <= MaxPort) {
		errs = append(errs, fmt.Errorf(`%w: invalid minimal %d or maximal port %d`, ErrInvalidConfig, x.PortMin, x.PortMax))
	}
	if !(MinSize <= x.SizeMin && x.SizeMin <= x.SizeMax && x.SizeMax <= MaxSize) {
		errs = append(errs, fmt.Errorf(`%w: invalid minimal %d or maximal size %d`, ErrInvalidConfig, x.SizeMin, x.SizeMax))
	}
	if !(MinTimeout <= x.Timeout && x.Timeout <= MaxTimeout) {
		errs = append(errs, fmt.Errorf(`%w: invalid timeout %d`, ErrInvalidConfig, x.Timeout.Milliseconds()))
	}
	if !(MinWorkers <= x.Workers && x.Workers <= MaxWorkers) {
		errs = append(errs, fmt.Errorf(`%w: invalid workers count %d`, ErrInvalidConfig, x.Workers))
	}
	if _, err := ParseTemplate(x.Address); err != nil {
		errs = append(errs, fmt.Errorf(`%w: invalid address %s: %w`, ErrInvalidConfig, x.Address, err))
	}
	return errors.Join(errs...)
}

// PortRange returns the destination port range.
func (x Config) PortRange() Range {
	return Range{Min: x.PortMin, Max: x.PortMax}
}

// SizeRange returns the datagram size range.
func (x Config) SizeRange() Range {
	return Range{Min: x.SizeMin, Max: x.SizeMax}
}
