package message

import (
	"fmt"
)

// DefaultPort is the well-known CoAP port. Human-readable address forms omit
// the port when it matches this value.
const DefaultPort = 5683

// Supported URI schemes.
const (
	// SchemeCoAP is plain CoAP over UDP.
	SchemeCoAP = "coap"
	// SchemeCoAPS is CoAP over DTLS. The plain UDP transport rejects it.
	SchemeCoAPS = "coaps"
)

// Type identifies the CoAP message type from the fixed header.
type Type uint8

const (
	// TypeConfirmable requests an acknowledgement from the peer.
	TypeConfirmable Type = 0
	// TypeNonConfirmable is fire-and-forget.
	TypeNonConfirmable Type = 1
	// TypeAcknowledgement acknowledges a confirmable message.
	TypeAcknowledgement Type = 2
	// TypeReset signals that a message could not be processed.
	TypeReset Type = 3
)

// String returns a human-readable representation of the Type.
func (t Type) String() string {
	switch t {
	case TypeConfirmable:
		return "CON"
	case TypeNonConfirmable:
		return "NON"
	case TypeAcknowledgement:
		return "ACK"
	case TypeReset:
		return "RST"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Code is the CoAP code byte, a 3-bit class and a 5-bit detail.
type Code uint8

const (
	// CodeEmpty marks an empty message (pings and resets).
	CodeEmpty Code = 0x00
	// CodeGET is the GET request method.
	CodeGET Code = 0x01
	// CodePOST is the POST request method.
	CodePOST Code = 0x02
	// CodePUT is the PUT request method.
	CodePUT Code = 0x03
	// CodeDELETE is the DELETE request method.
	CodeDELETE Code = 0x04
	// CodeContent is the 2.05 Content response.
	CodeContent Code = 0x45
	// CodeNotFound is the 4.04 Not Found response.
	CodeNotFound Code = 0x84
)

// String formats the code in the dotted class.detail notation, e.g. "2.05".
func (c Code) String() string {
	return fmt.Sprintf("%d.%02d", uint8(c)>>5, uint8(c)&0x1f)
}

// Remote is the handle a decoded message carries back to the connection it
// arrived on, and the handle an outgoing message must carry before it can be
// sent. The transport layer's Connection implements it.
type Remote interface {
	// Send writes one datagram to the remote the handle is bound to.
	Send(data []byte) error

	// IsMulticast reports whether the remote is a multicast destination.
	IsMulticast() bool

	// Hostinfo returns the remote in "host" or "host:port" form, omitting
	// the port when it equals DefaultPort.
	Hostinfo() string

	// RemotePort returns the remote's UDP port.
	RemotePort() uint16
}

// Message is one CoAP message. The transport layer treats the payload as
// opaque; the destination fields (UnresolvedRemote, UriHost, UriPort,
// RequestedScheme) are only consulted while the message has no Remote yet.
type Message struct {
	Type      Type
	Code      Code
	MessageID uint16
	Token     []byte

	// UriHost and UriPort mirror the Uri-Host and Uri-Port options.
	UriHost string
	UriPort uint16

	Payload []byte

	// UnresolvedRemote is a textual host[:port] destination attached before
	// a Remote has been obtained. It takes precedence over UriHost/UriPort.
	UnresolvedRemote string

	// RequestedScheme selects the transport. Empty means SchemeCoAP.
	RequestedScheme string

	// Remote is the bound connection handle, set by the transport on decode
	// and required before Send.
	Remote Remote
}

// String returns a short diagnostic form of the message.
func (m *Message) String() string {
	return fmt.Sprintf("<Message %s %s MID=%d token=%x payload=%dB>",
		m.Type, m.Code, m.MessageID, m.Token, len(m.Payload))
}
