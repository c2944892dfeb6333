package transport

import (
	"errors"
	"fmt"
)

// Common errors for the datagram transport.
var (
	// ErrPoolClosed indicates a connect attempt after pool shutdown began
	ErrPoolClosed = errors.New("connection pool closed")

	// ErrConnectionDestroyed indicates use of a Connection whose shutdown
	// has already begun
	ErrConnectionDestroyed = errors.New("connection destroyed")

	// ErrNoDestination indicates a message that carries no destination in
	// either its unresolved remote or its Uri-Host option
	ErrNoDestination = errors.New("no destination found in message")
)

// TransportError represents a transport failure with additional context.
type TransportError struct {
	Op   string // operation that caused the error
	Addr string // remote address if relevant
	Err  error  // underlying error
}

func (e *TransportError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("transport %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// newTransportError creates a new TransportError.
func newTransportError(op, addr string, err error) *TransportError {
	return &TransportError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
