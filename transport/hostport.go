package transport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/opd-ai/coapcore/message"
)

// splitUnresolved parses a textual host[:port] destination. A missing port
// falls back to the protocol default. IPv6 literals must be bracketed when a
// port is present.
func splitUnresolved(hostport string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) && strings.Contains(addrErr.Err, "missing port") {
			return strings.Trim(hostport, "[]"), message.DefaultPort, nil
		}
		return "", 0, fmt.Errorf("malformed destination %q: %w", hostport, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("malformed port in destination %q: %w", hostport, err)
	}
	return host, uint16(port), nil
}

// hostinfo formats a remote in the human-readable form used throughout the
// protocol, omitting the port when it equals the well-known default.
func hostinfo(host string, port uint16) string {
	if port == message.DefaultPort {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// addrHostPort extracts host and port from a socket peer address.
func addrHostPort(addr net.Addr) (string, uint16) {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP.String(), uint16(udp.Port)
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	port, _ := strconv.ParseUint(portStr, 10, 16)
	return host, uint16(port)
}
