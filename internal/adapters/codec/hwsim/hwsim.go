// Package hwsim decodes and encodes the TLV attribute stream carried
// inside a mac80211_hwsim generic-netlink message (spec.md §4.1). Each
// attribute is `nla_len` (2 bytes, excludes padding), `nla_type` (2
// bytes), then `nla_len-4` bytes of value, padded to a 4-byte boundary.
package hwsim

import (
	"encoding/binary"

	"github.com/google/netsim/internal/core/domain"
)

// Attribute types used by netsimd's hwsim facade. Only the subset the
// daemon actually inspects is named; unrecognized types round-trip
// unchanged.
const (
	AttrReceiver  = 1
	AttrTransmitter = 2
	AttrFrame     = 3
	AttrFlags     = 4
	AttrRxRate    = 5
	AttrSignal    = 6
	AttrCookie    = 7
	AttrFreq      = 8
)

const attrHeaderLen = 4

// Attribute is one decoded TLV.
type Attribute struct {
	Type  uint16
	Value []byte
}

// Decode walks buf as a TLV stream. A truncated header or a value longer
// than the remaining buffer is a ParseError naming the offending offset.
func Decode(buf []byte) ([]Attribute, error) {
	var attrs []Attribute
	offset := 0
	for offset < len(buf) {
		if offset+attrHeaderLen > len(buf) {
			return nil, domain.NewError(domain.KindParseError,
				"hwsim: truncated attribute header at offset %d", offset)
		}
		nlaLen := binary.LittleEndian.Uint16(buf[offset : offset+2])
		nlaType := binary.LittleEndian.Uint16(buf[offset+2 : offset+4])
		if int(nlaLen) < attrHeaderLen {
			return nil, domain.NewError(domain.KindParseError,
				"hwsim: attribute at offset %d declares length %d shorter than header", offset, nlaLen)
		}
		valueEnd := offset + int(nlaLen)
		if valueEnd > len(buf) {
			return nil, domain.NewError(domain.KindParseError,
				"hwsim: attribute at offset %d declares length %d beyond buffer (%d bytes remain)",
				offset, nlaLen, len(buf)-offset)
		}
		value := append([]byte(nil), buf[offset+attrHeaderLen:valueEnd]...)
		attrs = append(attrs, Attribute{Type: nlaType, Value: value})

		offset = valueEnd
		if pad := offset % 4; pad != 0 {
			offset += 4 - pad
		}
	}
	return attrs, nil
}

// Encode serializes attrs back into a padded TLV stream.
func Encode(attrs []Attribute) []byte {
	var buf []byte
	for _, a := range attrs {
		nlaLen := attrHeaderLen + len(a.Value)
		header := make([]byte, attrHeaderLen)
		binary.LittleEndian.PutUint16(header[0:2], uint16(nlaLen))
		binary.LittleEndian.PutUint16(header[2:4], a.Type)
		buf = append(buf, header...)
		buf = append(buf, a.Value...)
		if pad := len(buf) % 4; pad != 0 {
			buf = append(buf, make([]byte, 4-pad)...)
		}
	}
	return buf
}

// Find returns the first attribute of the given type, if present.
func Find(attrs []Attribute, typ uint16) ([]byte, bool) {
	for _, a := range attrs {
		if a.Type == typ {
			return a.Value, true
		}
	}
	return nil, false
}
