package transport

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/coapcore/message"
)

// Decoded messages carry their Connection as the message-level remote handle.
var _ message.Remote = (*Connection)(nil)

// EndpointHandler is the protocol engine's side of the transport: decoded
// messages and socket errors flow into it. The Endpoint holds the handler
// only as long as it is running; Shutdown clears the reference.
type EndpointHandler interface {
	// ReceiveMessage delivers a decoded inbound message. The message's
	// Remote is the Connection it arrived on.
	ReceiveMessage(msg *message.Message)

	// ReceiveError reports a socket-level error together with the
	// Connection it originated on. Whether the error is fatal to an
	// in-flight exchange is the engine's call; the Connection stays alive.
	ReceiveError(err error, remote *Connection)
}

// Endpoint is the transport facade the protocol engine talks to. It resolves
// message destinations into Connections, decodes inbound datagrams, and
// forwards socket errors upward.
type Endpoint struct {
	pool   *Pool
	codec  message.Codec
	logger *logrus.Entry

	mu      sync.RWMutex
	handler EndpointHandler
}

// NewEndpoint creates an Endpoint. A nil factory selects the production UDP
// factory, a nil codec the RFC 7252 wire codec, and a nil logger the logrus
// standard logger. The handler must not be nil.
func NewEndpoint(factory SocketFactory, codec message.Codec, handler EndpointHandler, logger *logrus.Logger) *Endpoint {
	if codec == nil {
		codec = message.NewWireCodec()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Endpoint{
		pool:    NewPool(factory),
		codec:   codec,
		handler: handler,
		logger:  logger.WithField("component", "TransportEndpoint"),
	}
}

// DetermineRemote resolves a message's destination into a Connection,
// creating one through the pool. A requested scheme this transport does not
// carry yields (nil, nil) so the engine can try another transport. The
// destination host comes from the message's unresolved remote when present,
// else from its Uri-Host option; the port defaults to the well-known CoAP
// port. A message yielding no host fails with ErrNoDestination.
func (e *Endpoint) DetermineRemote(ctx context.Context, msg *message.Message) (*Connection, error) {
	if msg.RequestedScheme != "" && msg.RequestedScheme != message.SchemeCoAP {
		return nil, nil
	}

	var host string
	var port uint16
	switch {
	case msg.UnresolvedRemote != "":
		var err error
		host, port, err = splitUnresolved(msg.UnresolvedRemote)
		if err != nil {
			return nil, newTransportError("resolve", msg.UnresolvedRemote, err)
		}
	case msg.UriHost != "":
		host = msg.UriHost
		port = msg.UriPort
		if port == 0 {
			port = message.DefaultPort
		}
	default:
		return nil, ErrNoDestination
	}

	return e.pool.Connect(ctx, net.JoinHostPort(host, strconv.Itoa(int(port))), e)
}

// Send encodes a message and writes it to the Connection the message already
// carries. Obtaining that Connection via DetermineRemote first is the
// caller's contract; a message without one fails with ErrNoDestination.
func (e *Endpoint) Send(msg *message.Message) error {
	if msg.Remote == nil {
		return newTransportError("send", "", ErrNoDestination)
	}
	data, err := e.codec.Encode(msg)
	if err != nil {
		return newTransportError("send", msg.Remote.Hostinfo(), err)
	}
	return msg.Remote.Send(data)
}

// Shutdown quiesces the pool, then clears the handler so stray events
// arriving during teardown dispatch nowhere. Call it exactly once.
func (e *Endpoint) Shutdown() error {
	err := e.pool.Shutdown()

	e.mu.Lock()
	e.handler = nil
	e.mu.Unlock()
	return err
}

// HandleDatagram decodes an inbound datagram and forwards the message to the
// engine. Malformed datagrams are logged at warning level and dropped; they
// are never escalated as errors.
func (e *Endpoint) HandleDatagram(conn *Connection, data []byte) {
	handler := e.currentHandler()
	if handler == nil {
		return
	}

	msg, err := e.codec.Decode(data, conn)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"remote": conn.Hostinfo(),
			"error":  err,
		}).Warn("Ignoring unparsable datagram")
		return
	}
	handler.ReceiveMessage(msg)
}

// HandleSocketError forwards a socket-level error to the engine together
// with the Connection it originated on.
func (e *Endpoint) HandleSocketError(conn *Connection, err error) {
	if handler := e.currentHandler(); handler != nil {
		handler.ReceiveError(err, conn)
	}
}

func (e *Endpoint) currentHandler() EndpointHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handler
}
