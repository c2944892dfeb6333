package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRemote struct{}

func (testRemote) Send([]byte) error  { return nil }
func (testRemote) IsMulticast() bool  { return false }
func (testRemote) Hostinfo() string   { return "example.com" }
func (testRemote) RemotePort() uint16 { return DefaultPort }

func TestWireCodecEncodeFixedHeader(t *testing.T) {
	codec := NewWireCodec()

	data, err := codec.Encode(&Message{
		Type:      TypeConfirmable,
		Code:      CodeGET,
		MessageID: 0x1234,
		Token:     []byte{0xab},
	})
	require.NoError(t, err)

	// Version 1, CON, TKL 1, code 0.01, message ID, token.
	assert.Equal(t, []byte{0x41, 0x01, 0x12, 0x34, 0xab}, data)
}

func TestWireCodecRoundTrip(t *testing.T) {
	codec := NewWireCodec()
	remote := testRemote{}

	tests := []struct {
		name string
		msg  *Message
	}{
		{
			name: "request with options and payload",
			msg: &Message{
				Type:      TypeConfirmable,
				Code:      CodePOST,
				MessageID: 0xbeef,
				Token:     []byte{0x01, 0x02, 0x03},
				UriHost:   "node1.example",
				UriPort:   5001,
				Payload:   []byte("hello coap"),
			},
		},
		{
			name: "long host needs an extended option length",
			msg: &Message{
				Type:      TypeNonConfirmable,
				Code:      CodeGET,
				MessageID: 1,
				UriHost:   "a-rather-long-hostname.subdomain.example.com",
			},
		},
		{
			name: "response without options",
			msg: &Message{
				Type:      TypeAcknowledgement,
				Code:      CodeContent,
				MessageID: 7,
				Token:     []byte{0xff},
				Payload:   []byte{0x00, 0xff, 0x00},
			},
		},
		{
			name: "empty message",
			msg:  &Message{Type: TypeReset, Code: CodeEmpty, MessageID: 99},
		},
		{
			name: "low port encodes in one byte",
			msg: &Message{
				Type:      TypeConfirmable,
				Code:      CodeGET,
				MessageID: 2,
				UriHost:   "h",
				UriPort:   80,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.Encode(tt.msg)
			require.NoError(t, err)

			got, err := codec.Decode(data, remote)
			require.NoError(t, err)

			assert.Equal(t, tt.msg.Type, got.Type)
			assert.Equal(t, tt.msg.Code, got.Code)
			assert.Equal(t, tt.msg.MessageID, got.MessageID)
			assert.Equal(t, tt.msg.Token, got.Token)
			assert.Equal(t, tt.msg.UriHost, got.UriHost)
			assert.Equal(t, tt.msg.UriPort, got.UriPort)
			assert.Equal(t, tt.msg.Payload, got.Payload)
			assert.Equal(t, Remote(remote), got.Remote)
		})
	}
}

func TestWireCodecDecodeMalformed(t *testing.T) {
	codec := NewWireCodec()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty datagram", nil},
		{"short header", []byte{0x40, 0x01, 0x00}},
		{"unknown version", []byte{0x00, 0x01, 0x00, 0x01}},
		{"reserved token length", []byte{0x49, 0x01, 0x00, 0x01}},
		{"truncated token", []byte{0x42, 0x01, 0x00, 0x01, 0xab}},
		{"reserved option nibble", []byte{0x40, 0x01, 0x00, 0x01, 0xf0}},
		{"truncated option value", []byte{0x40, 0x01, 0x00, 0x01, 0x33, 0x61}},
		{"truncated option extension", []byte{0x40, 0x01, 0x00, 0x01, 0xd0}},
		{"payload marker without payload", []byte{0x40, 0x01, 0x00, 0x01, 0xff}},
		{"oversized uri-port value", []byte{0x40, 0x01, 0x00, 0x01, 0x73, 0x00, 0x16, 0x33}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := codec.Decode(tt.data, nil)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, ErrUnparsable)
		})
	}
}

func TestWireCodecDecodeSkipsUnknownOptions(t *testing.T) {
	codec := NewWireCodec()

	// Ver 1, CON, TKL 0, GET, MID 1, Uri-Path "ab" (option 11), payload "x".
	data := []byte{0x40, 0x01, 0x00, 0x01, 0xb2, 'a', 'b', 0xff, 'x'}

	msg, err := codec.Decode(data, nil)
	require.NoError(t, err)
	assert.Empty(t, msg.UriHost)
	assert.Zero(t, msg.UriPort)
	assert.Equal(t, []byte("x"), msg.Payload)
}

func TestWireCodecEncodeRejectsLongToken(t *testing.T) {
	codec := NewWireCodec()

	_, err := codec.Encode(&Message{Token: make([]byte, 9)})
	assert.ErrorIs(t, err, ErrTokenTooLong)
}
