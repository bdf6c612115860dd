package loop

import (
	"context"
	"errors"
	"net/netip"
)

// Resolver looks up addresses, and is implemented by [*net.Resolver].
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolve looks up host asynchronously, for network "ip", "ip4", or "ip6",
// retaining owner until cb has run. On success, cb receives the first
// address returned, paired with port. Failures are reported as a
// [*ResolveError], and cancellation as [ErrCanceled].
func (l *Loop) Resolve(owner Owner, network, host string, port uint16, cb func(netip.AddrPort, error)) (*Request, error) {
	if cb == nil {
		return nil, errors.New(`loop: nil resolve callback`)
	}
	resolver := l.resolver
	return l.startRequest(KindResolve, owner, func(ctx context.Context) func(bool) {
		addrs, err := resolver.LookupNetIP(ctx, network, host)
		return func(canceled bool) {
			switch {
			case canceled:
				cb(netip.AddrPort{}, ErrCanceled)
			case err != nil:
				cb(netip.AddrPort{}, &ResolveError{Host: host, Err: err})
			case len(addrs) == 0:
				cb(netip.AddrPort{}, &ResolveError{Host: host, Err: ErrNoAddress})
			default:
				cb(netip.AddrPortFrom(addrs[0].Unmap(), port), nil)
			}
		}
	})
}
