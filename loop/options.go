package loop

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// DefaultCloseRetries is the number of drain iterations [Loop.Close] attempts
// before giving up.
const DefaultCloseRetries = 1000

// loopOptions holds configuration options for Loop creation.
type loopOptions struct {
	logger       *logiface.Logger[logiface.Event]
	resolver     Resolver
	name         string
	closeRetries int
}

// Option configures a Loop instance.
type Option interface {
	applyLoop(*loopOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (o *optionImpl) applyLoop(opts *loopOptions) error {
	return o.applyLoopFunc(opts)
}

// WithLogger sets the logger used to report panics and unclosed handles.
// A nil logger disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithResolver replaces the resolver used by [Loop.Resolve], which defaults
// to [net.DefaultResolver].
func WithResolver(resolver Resolver) Option {
	return &optionImpl{func(opts *loopOptions) error {
		if resolver == nil {
			return errors.New("loop: nil resolver")
		}
		opts.resolver = resolver
		return nil
	}}
}

// WithName labels the loop in log output.
func WithName(name string) Option {
	return &optionImpl{func(opts *loopOptions) error {
		opts.name = name
		return nil
	}}
}

// WithCloseRetries sets the number of drain iterations attempted by
// [Loop.Close], see also [DefaultCloseRetries].
func WithCloseRetries(n int) Option {
	return &optionImpl{func(opts *loopOptions) error {
		if n <= 0 {
			return errors.New("loop: close retries must be positive")
		}
		opts.closeRetries = n
		return nil
	}}
}

// resolveOptions applies Option instances to loopOptions.
func resolveOptions(opts []Option) (*loopOptions, error) {
	cfg := &loopOptions{
		closeRetries: DefaultCloseRetries,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
