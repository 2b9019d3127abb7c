// Package netlink encodes/decodes the generic-netlink message header that
// wraps every mac80211_hwsim frame crossing the transport layer (spec.md
// §4.1). Decoders are total: malformed input returns a domain.ParseError
// carrying an offset and reason, and they never panic.
package netlink

import (
	"encoding/binary"

	"github.com/google/netsim/internal/core/domain"
)

// HeaderLen is the size in bytes of a netlink message header.
const HeaderLen = 16

// Header is the fixed nlmsghdr preceding a generic-netlink payload.
type Header struct {
	Len      uint32
	Type     uint16
	Flags    uint16
	Seq      uint32
	PortId   uint32
}

// GenlHeader is the generic-netlink header immediately following Header.
type GenlHeader struct {
	Cmd     uint8
	Version uint8
	// Reserved is two pad bytes; preserved on decode so Encode is a true
	// round trip even though netsimd never inspects it.
	Reserved uint16
}

// Message is a decoded netlink + genl header pair plus the remaining
// attribute payload.
type Message struct {
	Header     Header
	Genl       GenlHeader
	Attributes []byte
}

// Decode parses buf into a Message. buf must contain at least
// HeaderLen+4 bytes (nlmsghdr + genlmsghdr); anything shorter is a
// ParseError.
func Decode(buf []byte) (Message, error) {
	if len(buf) < HeaderLen+4 {
		return Message{}, domain.NewError(domain.KindParseError,
			"netlink: buffer too short at offset 0: need %d bytes, have %d", HeaderLen+4, len(buf))
	}

	var h Header
	h.Len = binary.LittleEndian.Uint32(buf[0:4])
	h.Type = binary.LittleEndian.Uint16(buf[4:6])
	h.Flags = binary.LittleEndian.Uint16(buf[6:8])
	h.Seq = binary.LittleEndian.Uint32(buf[8:12])
	h.PortId = binary.LittleEndian.Uint32(buf[12:16])

	if int(h.Len) > len(buf) {
		return Message{}, domain.NewError(domain.KindParseError,
			"netlink: header declares length %d but buffer is %d bytes", h.Len, len(buf))
	}

	g := GenlHeader{
		Cmd:      buf[16],
		Version:  buf[17],
		Reserved: binary.LittleEndian.Uint16(buf[18:20]),
	}

	end := len(buf)
	if int(h.Len) > 0 {
		end = int(h.Len)
	}
	if end < HeaderLen+4 {
		return Message{}, domain.NewError(domain.KindParseError,
			"netlink: declared length %d shorter than header", h.Len)
	}

	return Message{Header: h, Genl: g, Attributes: append([]byte(nil), buf[HeaderLen+4:end]...)}, nil
}

// Encode serializes m back to wire bytes. Len is recomputed from the
// actual attribute payload length, so Encode(Decode(x)) == x holds when
// x's length field equals len(x); a zero length field or bytes past the
// declared length do not survive the round trip.
func Encode(m Message) []byte {
	total := HeaderLen + 4 + len(m.Attributes)
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(total))
	binary.LittleEndian.PutUint16(buf[4:6], m.Header.Type)
	binary.LittleEndian.PutUint16(buf[6:8], m.Header.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], m.Header.Seq)
	binary.LittleEndian.PutUint32(buf[12:16], m.Header.PortId)
	buf[16] = m.Genl.Cmd
	buf[17] = m.Genl.Version
	binary.LittleEndian.PutUint16(buf[18:20], m.Genl.Reserved)
	copy(buf[20:], m.Attributes)
	return buf
}
