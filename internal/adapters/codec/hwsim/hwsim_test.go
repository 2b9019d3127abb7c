package hwsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripWithPadding(t *testing.T) {
	attrs := []Attribute{
		{Type: AttrReceiver, Value: []byte{1, 2, 3, 4, 5, 6}}, // needs 2 bytes pad
		{Type: AttrFrame, Value: []byte{0xde, 0xad, 0xbe, 0xef}},
	}
	encoded := Encode(attrs)
	assert.Equal(t, 0, len(encoded)%4)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, attrs[0].Value, decoded[0].Value)
	assert.Equal(t, attrs[1].Value, decoded[1].Value)
}

func TestFind(t *testing.T) {
	attrs := []Attribute{{Type: AttrSignal, Value: []byte{0x10}}}
	v, ok := Find(attrs, AttrSignal)
	require.True(t, ok)
	assert.Equal(t, []byte{0x10}, v)

	_, ok = Find(attrs, AttrCookie)
	assert.False(t, ok)
}

func TestDecodeTruncatedHeaderIsParseError(t *testing.T) {
	_, err := Decode([]byte{1, 2})
	require.Error(t, err)
}

func TestDecodeOverrunValueIsParseError(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00, 0x01, 0x00})
	require.Error(t, err)
}
