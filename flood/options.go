package flood

import (
	"errors"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-udpflood/loop"
	"github.com/joeycumines/logiface"
)

// managerOptions holds configuration options for Manager creation.
type managerOptions struct {
	logger       *logiface.Logger[logiface.Event]
	traceLimiter *catrate.Limiter
	resolver     loop.Resolver
	sendBuffer   int
	cpuAffinity  bool
}

// Option configures a Manager instance.
type Option interface {
	applyManager(*managerOptions) error
}

type optionImpl struct {
	applyManagerFunc func(*managerOptions) error
}

func (o *optionImpl) applyManager(opts *managerOptions) error {
	return o.applyManagerFunc(opts)
}

// WithLogger sets the logger, which is cloned for each worker, with a
// "worker" field. A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *managerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithTraceLimiter replaces the limiter applied to per-datagram trace logs,
// which are categorized by worker index. See also [DefaultTraceRates].
func WithTraceLimiter(limiter *catrate.Limiter) Option {
	return &optionImpl{func(opts *managerOptions) error {
		opts.traceLimiter = limiter
		return nil
	}}
}

// WithResolver replaces the resolver of each threaded worker's loop. The
// inline worker resolves with the loop passed to [Manager.CreateInline], see
// [loop.WithResolver].
func WithResolver(resolver loop.Resolver) Option {
	return &optionImpl{func(opts *managerOptions) error {
		if resolver == nil {
			return errors.New(`flood: nil resolver`)
		}
		opts.resolver = resolver
		return nil
	}}
}

// WithSendBuffer sets the send buffer size of every worker's socket, in
// bytes. Zero leaves the system default.
func WithSendBuffer(size int) Option {
	return &optionImpl{func(opts *managerOptions) error {
		if size < 0 {
			return errors.New(`flood: negative send buffer`)
		}
		opts.sendBuffer = size
		return nil
	}}
}

// WithCPUAffinity pins each threaded worker to one of the CPUs the process
// may run on, spreading workers round robin. Only supported on Linux.
func WithCPUAffinity(enabled bool) Option {
	return &optionImpl{func(opts *managerOptions) error {
		opts.cpuAffinity = enabled
		return nil
	}}
}

// DefaultTraceRates are the per-worker rates of the default trace limiter.
func DefaultTraceRates() map[time.Duration]int {
	return map[time.Duration]int{
		time.Second: 10,
		time.Minute: 100,
	}
}

func resolveOptions(opts []Option) (*managerOptions, error) {
	cfg := new(managerOptions)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyManager(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.traceLimiter == nil {
		cfg.traceLimiter = catrate.NewLimiter(DefaultTraceRates())
	}
	return cfg, nil
}
