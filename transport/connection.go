package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// Stage tracks a Connection through its lifecycle, for diagnostics and for
// guarding dispatch. Transitions are strictly monotonic.
type Stage uint8

const (
	// StageInitializing is the stage between construction and the socket
	// becoming ready.
	StageInitializing Stage = iota
	// StageActive means the socket is bound and may send and receive.
	StageActive
	// StageShuttingDown means shutdown has begun; no callback fires anymore.
	StageShuttingDown
	// StageDestroyed means the socket has been released.
	StageDestroyed
)

// String returns a human-readable representation of the Stage.
func (s Stage) String() string {
	switch s {
	case StageInitializing:
		return "initializing"
	case StageActive:
		return "active"
	case StageShuttingDown:
		return "shutting down"
	case StageDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// ConnectionEvents receives a Connection's inbound event stream. One sink
// object covers the whole stream; the ready signal is the return from
// Pool.Connect.
type ConnectionEvents interface {
	// HandleDatagram is called for every datagram the socket delivers.
	HandleDatagram(conn *Connection, data []byte)

	// HandleSocketError is called for every socket-level error. The
	// Connection stays alive afterwards, awaiting explicit shutdown.
	HandleSocketError(conn *Connection, err error)
}

// maxDatagramSize bounds a single inbound read. 64 KiB covers the largest
// UDP payload.
const maxDatagramSize = 65536

// Connection owns one outgoing datagram socket bound to a single remote
// address. It adapts the raw socket stream into the ConnectionEvents sink
// and implements message.Remote for decoded messages.
//
// Connections are created through Pool.Connect, never directly.
type Connection struct {
	sock   DatagramSocket
	logger *logrus.Entry

	// terminated is invoked once, after the destroyed transition. The pool
	// uses it to drop its registry entry.
	terminated func(*Connection)

	mu     sync.Mutex
	stage  Stage
	events ConnectionEvents

	readerDone chan struct{}
}

// newConnection wraps a ready socket and starts its reader. The socket is
// already bound, so the stage moves straight to active.
func newConnection(sock DatagramSocket, events ConnectionEvents, terminated func(*Connection)) *Connection {
	c := &Connection{
		sock:       sock,
		events:     events,
		terminated: terminated,
		stage:      StageInitializing,
		readerDone: make(chan struct{}),
		logger: logrus.WithFields(logrus.Fields{
			"component": "Connection",
			"remote":    sock.RemoteAddr().String(),
		}),
	}
	c.stage = StageActive
	go c.readLoop()
	c.logger.Debug("Connection active")
	return c
}

// String returns a short diagnostic form, including the lifecycle stage.
func (c *Connection) String() string {
	c.mu.Lock()
	stage := c.stage
	c.mu.Unlock()
	return fmt.Sprintf("<Connection to %s, %s>", c.sock.RemoteAddr(), stage)
}

// Stage returns the current lifecycle stage.
func (c *Connection) Stage() Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

// IsMulticast reports whether the remote is a multicast destination. This
// transport never produces multicast Connections.
func (c *Connection) IsMulticast() bool {
	return false
}

// RemotePort returns the port of the socket's peer address. Valid once the
// Connection is active.
func (c *Connection) RemotePort() uint16 {
	_, port := addrHostPort(c.sock.RemoteAddr())
	return port
}

// Hostinfo returns the peer in "host" or "host:port" form, omitting the port
// when it equals the well-known default.
func (c *Connection) Hostinfo() string {
	host, port := addrHostPort(c.sock.RemoteAddr())
	return hostinfo(host, port)
}

// RemoteAddr returns the socket's peer address.
func (c *Connection) RemoteAddr() net.Addr {
	return c.sock.RemoteAddr()
}

// Send writes one datagram to the bound remote. Acknowledgement and retry
// policy belong to the protocol engine; nothing here retries.
func (c *Connection) Send(data []byte) error {
	c.mu.Lock()
	if c.stage >= StageShuttingDown {
		c.mu.Unlock()
		return ErrConnectionDestroyed
	}
	c.mu.Unlock()

	if _, err := c.sock.Write(data); err != nil {
		return newTransportError("send", c.sock.RemoteAddr().String(), err)
	}
	return nil
}

// Shutdown releases the socket and clears the event sink. After it returns
// no further callback fires. Calling Shutdown on an already shut down
// Connection is a caller error and fails with ErrConnectionDestroyed.
func (c *Connection) Shutdown() error {
	c.mu.Lock()
	if c.stage >= StageShuttingDown {
		c.mu.Unlock()
		return ErrConnectionDestroyed
	}
	c.stage = StageShuttingDown
	c.events = nil
	c.mu.Unlock()

	err := c.sock.Close()
	<-c.readerDone

	c.mu.Lock()
	c.stage = StageDestroyed
	c.mu.Unlock()

	c.logger.Debug("Connection destroyed")
	if c.terminated != nil {
		c.terminated(c)
	}
	if err != nil {
		return newTransportError("shutdown", c.sock.RemoteAddr().String(), err)
	}
	return nil
}

// readLoop delivers inbound datagrams and socket errors to the event sink
// until the socket closes.
func (c *Connection) readLoop() {
	defer close(c.readerDone)
	buf := make([]byte, maxDatagramSize)

	for {
		n, err := c.sock.Read(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				// Closed without error: no callback.
				return
			}
			c.dispatchError(err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		c.dispatchDatagram(data)
	}
}

// sink returns the event sink, or nil once shutdown has begun. The stage
// check and the sink reference are read under one lock so the no-callback-
// after-shutdown invariant holds even while a reader is in flight.
func (c *Connection) sink() ConnectionEvents {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageActive {
		return nil
	}
	return c.events
}

func (c *Connection) dispatchDatagram(data []byte) {
	if events := c.sink(); events != nil {
		events.HandleDatagram(c, data)
	}
}

func (c *Connection) dispatchError(err error) {
	if events := c.sink(); events != nil {
		events.HandleSocketError(c, err)
	}
}
