// Package message provides the CoAP message model and wire codec consumed by
// the transport layer.
//
// The package covers the subset of RFC 7252 the client transport needs:
// the four-byte fixed header, tokens, the Uri-Host and Uri-Port options, and
// the payload marker. Unknown options are tolerated on decode and never
// produced on encode.
//
// Example:
//
//	codec := message.NewWireCodec()
//
//	msg := &message.Message{
//	    Type:      message.TypeConfirmable,
//	    Code:      message.CodeGET,
//	    MessageID: 0x1234,
//	    Token:     []byte{0x01},
//	}
//
//	data, err := codec.Encode(msg)
//	if err != nil {
//	    log.Fatal(err)
//	}
package message
