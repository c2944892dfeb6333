package transport

import (
	"context"
	"net"
	"sync"

	"github.com/opd-ai/coapcore/message"
)

// fakeAddr is a peer address for in-memory sockets.
type fakeAddr string

func (a fakeAddr) Network() string { return "udp" }
func (a fakeAddr) String() string  { return string(a) }

// fakeSocket is an in-memory DatagramSocket. Inbound datagrams and socket
// errors are injected through channels; writes are recorded.
type fakeSocket struct {
	addr     fakeAddr
	incoming chan []byte
	readErrs chan error
	closed   chan struct{}

	closeOnce sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeSocket(addr string) *fakeSocket {
	return &fakeSocket{
		addr:     fakeAddr(addr),
		incoming: make(chan []byte, 16),
		readErrs: make(chan error, 16),
		closed:   make(chan struct{}),
	}
}

func (s *fakeSocket) Read(buf []byte) (int, error) {
	select {
	case data := <-s.incoming:
		return copy(buf, data), nil
	case err := <-s.readErrs:
		return 0, err
	case <-s.closed:
		return 0, net.ErrClosed
	}
}

func (s *fakeSocket) Write(data []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, net.ErrClosed
	default:
	}
	s.mu.Lock()
	s.written = append(s.written, append([]byte(nil), data...))
	s.mu.Unlock()
	return len(data), nil
}

func (s *fakeSocket) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) RemoteAddr() net.Addr { return s.addr }

func (s *fakeSocket) inject(data []byte) { s.incoming <- data }

func (s *fakeSocket) injectError(err error) { s.readErrs <- err }

func (s *fakeSocket) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *fakeSocket) writtenData() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.written))
	copy(out, s.written)
	return out
}

// fakeFactory hands out fakeSockets and records every dialed address.
type fakeFactory struct {
	dialErr error
	// block, when set, delays Dial until the channel is closed (or the
	// context expires).
	block chan struct{}

	mu      sync.Mutex
	dialed  []string
	sockets []*fakeSocket
}

func newFakeFactory() *fakeFactory { return &fakeFactory{} }

func (f *fakeFactory) Dial(ctx context.Context, address string) (DatagramSocket, error) {
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	sock := newFakeSocket(address)
	f.mu.Lock()
	f.dialed = append(f.dialed, address)
	f.sockets = append(f.sockets, sock)
	f.mu.Unlock()
	return sock, nil
}

func (f *fakeFactory) lastSocket() *fakeSocket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sockets) == 0 {
		return nil
	}
	return f.sockets[len(f.sockets)-1]
}

func (f *fakeFactory) dialedAddrs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.dialed))
	copy(out, f.dialed)
	return out
}

// captureEvents is a ConnectionEvents sink exposing dispatches as channels.
type captureEvents struct {
	datagrams chan capturedDatagram
	errors    chan capturedError
}

type capturedDatagram struct {
	conn *Connection
	data []byte
}

type capturedError struct {
	conn *Connection
	err  error
}

func newCaptureEvents() *captureEvents {
	return &captureEvents{
		datagrams: make(chan capturedDatagram, 16),
		errors:    make(chan capturedError, 16),
	}
}

func (c *captureEvents) HandleDatagram(conn *Connection, data []byte) {
	c.datagrams <- capturedDatagram{conn: conn, data: data}
}

func (c *captureEvents) HandleSocketError(conn *Connection, err error) {
	c.errors <- capturedError{conn: conn, err: err}
}

// captureHandler is an EndpointHandler exposing dispatches as channels.
type captureHandler struct {
	messages chan *message.Message
	errors   chan capturedError
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{
		messages: make(chan *message.Message, 16),
		errors:   make(chan capturedError, 16),
	}
}

func (h *captureHandler) ReceiveMessage(msg *message.Message) {
	h.messages <- msg
}

func (h *captureHandler) ReceiveError(err error, remote *Connection) {
	h.errors <- capturedError{conn: remote, err: err}
}
