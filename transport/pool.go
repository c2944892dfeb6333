package transport

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Pool is the factory and registry for Connections. It tracks every live
// Connection by identity so Shutdown can quiesce them all, and drops each
// entry on that Connection's terminal transition.
//
// Connect deliberately performs no deduplication: two calls with addresses
// that are textually different but resolve identically, or even with equal
// addresses, produce two independent Connections.
type Pool struct {
	factory SocketFactory
	logger  *logrus.Entry

	mu     sync.Mutex
	closed bool
	conns  map[*Connection]struct{}
}

// NewPool creates a Pool using the given socket factory. A nil factory
// selects the production UDP factory.
func NewPool(factory SocketFactory) *Pool {
	if factory == nil {
		factory = NewUDPSocketFactory()
	}
	return &Pool{
		factory: factory,
		conns:   make(map[*Connection]struct{}),
		logger:  logrus.WithField("component", "ConnectionPool"),
	}
}

// Connect creates a new socket bound to address, wires the event sink, and
// registers the resulting Connection. It blocks until the socket is ready;
// the caller's context is the only deadline. Once Shutdown has begun,
// Connect fails with ErrPoolClosed.
//
// A dial that never completes leaves no trace in the registry: a Connection
// only exists, and is only tracked, after its socket is ready.
func (p *Pool) Connect(ctx context.Context, address string, events ConnectionEvents) (*Connection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	sock, err := p.factory.Dial(ctx, address)
	if err != nil {
		return nil, err
	}

	conn := newConnection(sock, events, p.remove)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		// Shutdown began while dialing; the sweep cannot see this
		// Connection anymore, so quiesce it here.
		_ = conn.Shutdown()
		return nil, ErrPoolClosed
	}
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"address": address,
		"tracked": p.Len(),
	}).Debug("Connection registered")
	return conn, nil
}

// Shutdown quiesces every registered Connection concurrently and returns
// after all of them have been destroyed. Subsequent Connect calls fail with
// ErrPoolClosed.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	p.closed = true
	pending := make([]*Connection, 0, len(p.conns))
	for conn := range p.conns {
		pending = append(pending, conn)
	}
	p.mu.Unlock()

	var wg sync.WaitGroup
	errs := make(chan error, len(pending))
	for _, conn := range pending {
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			if err := conn.Shutdown(); err != nil {
				errs <- err
			}
		}(conn)
	}
	wg.Wait()
	close(errs)

	p.logger.WithField("connections", len(pending)).Debug("Pool shut down")
	return <-errs
}

// Len returns the number of tracked Connections.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// remove drops a Connection from the registry on its terminal transition.
func (p *Pool) remove(conn *Connection) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
}
