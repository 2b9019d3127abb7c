package hci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	p := Packet{Type: PacketTypeCommand, Payload: []byte{0x01, 0x02, 0x03}}
	encoded := EncodeFrame(p)

	decoded, n, err := DecodeFrame(encoded)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), n)
	assert.Equal(t, p.Type, decoded.Type)
	assert.Equal(t, p.Payload, decoded.Payload)
}

func TestCommandRoundTrip(t *testing.T) {
	c := Command{OGF: OgfLEControl, OCF: OcfLESetAdvertiseEnable, Params: []byte{0x01}}
	encoded := EncodeCommand(c)

	decoded, err := DecodeCommand(encoded)
	require.NoError(t, err)
	assert.Equal(t, c.OGF, decoded.OGF)
	assert.Equal(t, c.OCF, decoded.OCF)
	assert.Equal(t, c.Params, decoded.Params)
}

func TestDecodeFrameTruncatedIsParseError(t *testing.T) {
	_, _, err := DecodeFrame([]byte{1, 2})
	require.Error(t, err)
}

func TestDecodeCommandTruncatedIsParseError(t *testing.T) {
	_, err := DecodeCommand([]byte{1, 2})
	require.Error(t, err)
}
