package loop

import (
	"context"
	"errors"
	"net"
	"net/netip"
)

type (
	// UDP is an unconnected datagram socket handle.
	UDP struct {
		conn *net.UDPConn
		handle
	}

	// UDPOption configures a UDP handle.
	UDPOption interface {
		applyUDP(*udpOptions) error
	}

	udpOptions struct {
		sendBuffer int
	}

	udpOptionImpl struct {
		applyUDPFunc func(*udpOptions) error
	}
)

func (o *udpOptionImpl) applyUDP(opts *udpOptions) error {
	return o.applyUDPFunc(opts)
}

// WithSendBuffer sets the socket send buffer size, in bytes. On Linux, the
// privileged SO_SNDBUFFORCE is attempted first, ignoring rmem limits.
func WithSendBuffer(size int) UDPOption {
	return &udpOptionImpl{func(opts *udpOptions) error {
		if size < 0 {
			return errors.New(`loop: negative send buffer`)
		}
		opts.sendBuffer = size
		return nil
	}}
}

// NewUDP opens a socket for network ("udp", "udp4", or "udp6"), bound to an
// ephemeral local port, then binds it to l, retaining owner.
func NewUDP(l *Loop, owner Owner, network string, opts ...UDPOption) (*UDP, error) {
	var cfg udpOptions
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyUDP(&cfg); err != nil {
			return nil, err
		}
	}

	if l.state.Load() == StateClosed {
		return nil, ErrLoopClosed
	}

	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, err
	}

	if cfg.sendBuffer > 0 {
		if err := setSendBuffer(conn, cfg.sendBuffer); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	u := &UDP{conn: conn}
	if err := l.bind(&u.handle, KindUDP, owner); err != nil {
		_ = conn.Close()
		return nil, err
	}
	u.onClose = func() { _ = u.conn.Close() }

	return u, nil
}

// LocalAddr returns the local address of the socket.
func (u *UDP) LocalAddr() netip.AddrPort {
	if addr, ok := u.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.AddrPort()
	}
	return netip.AddrPort{}
}

// Send writes buf as a single datagram to addr, asynchronously, retaining
// the socket's owner until cb has run. The caller must not modify buf until
// then. A send interrupted by cancellation, or by the socket closing,
// completes with [ErrCanceled].
func (u *UDP) Send(buf []byte, addr netip.AddrPort, cb func(n int, err error)) (*Request, error) {
	if u.closing {
		return nil, ErrHandleClosing
	}
	if cb == nil {
		return nil, errors.New(`loop: nil send callback`)
	}
	return u.loop.startRequest(KindUDPSend, u.owner, func(context.Context) func(bool) {
		n, err := u.conn.WriteToUDPAddrPort(buf, addr)
		return func(canceled bool) {
			switch {
			case canceled, err != nil && u.closing && errors.Is(err, net.ErrClosed):
				cb(0, ErrCanceled)
			case err != nil:
				cb(0, err)
			default:
				cb(n, nil)
			}
		}
	})
}
