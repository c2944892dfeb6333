package message

import (
	"errors"
	"fmt"
)

// Option numbers handled by the codec.
const (
	optionUriHost = 3
	optionUriPort = 7
)

// maxTokenLength is the largest token RFC 7252 allows; TKL values above it
// are reserved and mark a message format error.
const maxTokenLength = 8

// ErrUnparsable indicates that a datagram is not a well-formed CoAP message.
// Every decode failure wraps it, so callers can test with errors.Is and drop
// the datagram without caring which rule it violated.
var ErrUnparsable = errors.New("unparsable message")

// ErrTokenTooLong indicates an outgoing message with a token longer than the
// protocol allows.
var ErrTokenTooLong = errors.New("token exceeds 8 bytes")

// Codec translates between Messages and datagram payloads.
type Codec interface {
	// Encode serializes a message for transmission.
	Encode(msg *Message) ([]byte, error)

	// Decode parses a received datagram, attaching remote as the resulting
	// message's Remote. Malformed input fails with an error wrapping
	// ErrUnparsable.
	Decode(data []byte, remote Remote) (*Message, error)
}

// WireCodec implements Codec with the RFC 7252 binary framing.
type WireCodec struct{}

// NewWireCodec creates a WireCodec.
func NewWireCodec() *WireCodec {
	return &WireCodec{}
}

// Encode serializes a message for transmission.
func (c *WireCodec) Encode(msg *Message) ([]byte, error) {
	if len(msg.Token) > maxTokenLength {
		return nil, ErrTokenTooLong
	}

	// Format: [ver|type|tkl (1 byte)][code (1 byte)][message ID (2 bytes)]
	// [token][options][0xFF payload marker][payload]
	out := make([]byte, 0, 4+len(msg.Token)+len(msg.Payload)+16)
	out = append(out,
		0x40|byte(msg.Type)<<4|byte(len(msg.Token)),
		byte(msg.Code),
		byte(msg.MessageID>>8),
		byte(msg.MessageID),
	)
	out = append(out, msg.Token...)

	// Options must be emitted in ascending option-number order for the
	// delta encoding to stay valid.
	prev := 0
	if msg.UriHost != "" {
		out = appendOption(out, optionUriHost-prev, []byte(msg.UriHost))
		prev = optionUriHost
	}
	if msg.UriPort != 0 {
		out = appendOption(out, optionUriPort-prev, portBytes(msg.UriPort))
	}

	if len(msg.Payload) > 0 {
		out = append(out, 0xff)
		out = append(out, msg.Payload...)
	}
	return out, nil
}

// Decode parses a received datagram.
func (c *WireCodec) Decode(data []byte, remote Remote) (*Message, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the fixed header", ErrUnparsable, len(data))
	}
	if data[0]>>6 != 1 {
		return nil, fmt.Errorf("%w: unknown version %d", ErrUnparsable, data[0]>>6)
	}
	tkl := int(data[0] & 0x0f)
	if tkl > maxTokenLength {
		return nil, fmt.Errorf("%w: reserved token length %d", ErrUnparsable, tkl)
	}
	if len(data) < 4+tkl {
		return nil, fmt.Errorf("%w: truncated token", ErrUnparsable)
	}

	msg := &Message{
		Type:      Type(data[0] >> 4 & 0x03),
		Code:      Code(data[1]),
		MessageID: uint16(data[2])<<8 | uint16(data[3]),
		Remote:    remote,
	}
	if tkl > 0 {
		msg.Token = append([]byte(nil), data[4:4+tkl]...)
	}

	pos := 4 + tkl
	number := 0
	for pos < len(data) {
		if data[pos] == 0xff {
			if pos+1 == len(data) {
				return nil, fmt.Errorf("%w: payload marker with empty payload", ErrUnparsable)
			}
			msg.Payload = append([]byte(nil), data[pos+1:]...)
			return msg, nil
		}

		deltaNibble := int(data[pos] >> 4)
		lengthNibble := int(data[pos] & 0x0f)
		pos++

		var delta, length int
		var err error
		delta, pos, err = extendField(deltaNibble, data, pos)
		if err != nil {
			return nil, err
		}
		length, pos, err = extendField(lengthNibble, data, pos)
		if err != nil {
			return nil, err
		}
		if pos+length > len(data) {
			return nil, fmt.Errorf("%w: truncated option value", ErrUnparsable)
		}

		number += delta
		value := data[pos : pos+length]
		pos += length

		switch number {
		case optionUriHost:
			msg.UriHost = string(value)
		case optionUriPort:
			port, err := portValue(value)
			if err != nil {
				return nil, err
			}
			msg.UriPort = port
		default:
			// Options this layer does not understand are skipped; option
			// criticality is the protocol engine's concern.
		}
	}
	return msg, nil
}

// appendOption emits one option header plus value using the RFC 7252 delta
// encoding (nibble values 13 and 14 select one and two extension bytes).
func appendOption(out []byte, delta int, value []byte) []byte {
	header := len(out)
	out = append(out, 0)

	dn := fieldNibble(&out, delta)
	ln := fieldNibble(&out, len(value))
	out[header] = byte(dn)<<4 | byte(ln)

	return append(out, value...)
}

// fieldNibble returns the nibble for a delta or length field, appending
// extension bytes to out as needed.
func fieldNibble(out *[]byte, v int) int {
	switch {
	case v < 13:
		return v
	case v < 269:
		*out = append(*out, byte(v-13))
		return 13
	default:
		*out = append(*out, byte((v-269)>>8), byte(v-269))
		return 14
	}
}

// extendField resolves a delta or length nibble against its extension bytes.
// Nibble 15 is reserved outside the payload marker.
func extendField(nibble int, data []byte, pos int) (int, int, error) {
	switch nibble {
	case 13:
		if pos >= len(data) {
			return 0, 0, fmt.Errorf("%w: truncated option extension", ErrUnparsable)
		}
		return int(data[pos]) + 13, pos + 1, nil
	case 14:
		if pos+1 >= len(data) {
			return 0, 0, fmt.Errorf("%w: truncated option extension", ErrUnparsable)
		}
		return int(data[pos])<<8 + int(data[pos+1]) + 269, pos + 2, nil
	case 15:
		return 0, 0, fmt.Errorf("%w: reserved option nibble 15", ErrUnparsable)
	default:
		return nibble, pos, nil
	}
}

// portBytes encodes a port as a minimal-length big-endian uint option value.
func portBytes(port uint16) []byte {
	if port > 0xff {
		return []byte{byte(port >> 8), byte(port)}
	}
	return []byte{byte(port)}
}

// portValue decodes a uint option value of at most two bytes.
func portValue(value []byte) (uint16, error) {
	switch len(value) {
	case 0:
		return 0, nil
	case 1:
		return uint16(value[0]), nil
	case 2:
		return uint16(value[0])<<8 | uint16(value[1]), nil
	default:
		return 0, fmt.Errorf("%w: Uri-Port value of %d bytes", ErrUnparsable, len(value))
	}
}
