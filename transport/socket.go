package transport

import (
	"context"
	"net"
)

// DatagramSocket is the connected, boundary-preserving socket a Connection
// owns. *net.UDPConn satisfies it; tests substitute in-memory fakes.
type DatagramSocket interface {
	// Read blocks until one datagram arrives and copies it into buf.
	Read(buf []byte) (int, error)

	// Write sends one datagram to the bound remote.
	Write(data []byte) (int, error)

	// Close releases the socket, unblocking any pending Read.
	Close() error

	// RemoteAddr returns the peer address the socket is bound to.
	RemoteAddr() net.Addr
}

// SocketFactory creates outgoing datagram sockets bound to a remote address.
// It stands in for the execution context, so the pool never reaches for
// ambient networking state and tests can supply an in-memory provider.
type SocketFactory interface {
	// Dial binds a new outgoing socket to the given "host:port" address.
	// The address need not be pre-resolved; resolution is deferred to the
	// underlying networking stack. Returning is the ready signal: a socket
	// handed back may send and receive immediately.
	Dial(ctx context.Context, address string) (DatagramSocket, error)
}

// UDPSocketFactory is the production SocketFactory, creating connected UDP
// sockets with a net.Dialer.
type UDPSocketFactory struct {
	dialer net.Dialer
}

// NewUDPSocketFactory creates a UDPSocketFactory.
func NewUDPSocketFactory() *UDPSocketFactory {
	return &UDPSocketFactory{}
}

// Dial creates a connected UDP socket bound to address.
func (f *UDPSocketFactory) Dial(ctx context.Context, address string) (DatagramSocket, error) {
	conn, err := f.dialer.DialContext(ctx, "udp", address)
	if err != nil {
		return nil, newTransportError("dial", address, err)
	}
	return conn, nil
}
