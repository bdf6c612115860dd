//go:build !linux

package loop

import (
	"net"
)

func setSendBuffer(conn *net.UDPConn, size int) error {
	return conn.SetWriteBuffer(size)
}
