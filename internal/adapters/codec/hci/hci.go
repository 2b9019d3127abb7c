// Package hci frames Host Controller Interface packets with the H4 packet
// type byte used on the raw TCP "hci_port" transport and on the link
// between the Bluetooth facade and its embedded link-layer engine (spec.md
// §4.1, §4.4, §4.7). Constants are grounded on standard Bluetooth Core HCI
// numbering, matching the values used by embedded HCI stacks.
package hci

import (
	"encoding/binary"

	"github.com/google/netsim/internal/core/domain"
)

// H4 packet type indicators, prefixed to every HCI frame.
const (
	PacketTypeCommand = 0x01
	PacketTypeACLData = 0x02
	PacketTypeSCOData = 0x03
	PacketTypeEvent   = 0x04
)

// OGF/OCF values for the HCI commands netsimd deals with. The Bluetooth
// facade acts on LE Set Advertise Enable and LE Start Encryption; every
// command it receives, these included, is answered with Command Complete.
const (
	OgfLinkControl = 0x01
	OgfHostControl = 0x03
	OgfInfoParam   = 0x04
	OgfStatusParam = 0x05
	OgfLEControl   = 0x08

	OcfReset                     = 0x0003
	OcfLESetAdvertisingParams    = 0x0006
	OcfLESetAdvertisingData      = 0x0008
	OcfLESetScanResponseData     = 0x0009
	OcfLESetAdvertiseEnable      = 0x000a
	OcfLESetScanParameters       = 0x000b
	OcfLESetScanEnable           = 0x000c
	OcfLECreateConn              = 0x000d
	OcfLEStartEncryption         = 0x0019
)

// Event codes the facade synthesizes or recognizes.
const (
	EventCommandComplete  = 0x0e
	EventCommandStatus    = 0x0f
	EventDisconnComplete  = 0x05
	EventLEMetaEvent      = 0x3e
)

// LE meta-subevent codes under EventLEMetaEvent.
const (
	LEMetaAdvertisingReport = 0x02
	LEMetaConnComplete      = 0x01
)

// Packet is one framed HCI packet: its H4 type byte and payload.
type Packet struct {
	Type    uint8
	Payload []byte
}

// Command is a decoded HCI command packet: opcode (OGF<<10 | OCF) plus
// parameters.
type Command struct {
	OGF    uint8
	OCF    uint16
	Params []byte
}

// DecodeFrame splits a length-prefixed H4 frame as read off the raw TCP
// hci_port (spec.md §4.7: "frames are length-prefixed HCI H4"). The first
// byte is the packet type, the next two bytes (little-endian) are the
// payload length, followed by that many payload bytes.
func DecodeFrame(buf []byte) (Packet, int, error) {
	if len(buf) < 3 {
		return Packet{}, 0, domain.NewError(domain.KindParseError,
			"hci: frame shorter than 3-byte prefix at offset 0 (have %d bytes)", len(buf))
	}
	typ := buf[0]
	length := binary.LittleEndian.Uint16(buf[1:3])
	total := 3 + int(length)
	if total > len(buf) {
		return Packet{}, 0, domain.NewError(domain.KindParseError,
			"hci: frame declares payload length %d but only %d bytes available", length, len(buf)-3)
	}
	return Packet{Type: typ, Payload: append([]byte(nil), buf[3:total]...)}, total, nil
}

// EncodeFrame serializes p with the length-prefix framing DecodeFrame
// expects.
func EncodeFrame(p Packet) []byte {
	buf := make([]byte, 3+len(p.Payload))
	buf[0] = p.Type
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(p.Payload)))
	copy(buf[3:], p.Payload)
	return buf
}

// DecodeCommand parses an HCI_COMMAND_PKT payload into its opcode and
// parameters.
func DecodeCommand(payload []byte) (Command, error) {
	if len(payload) < 3 {
		return Command{}, domain.NewError(domain.KindParseError,
			"hci: command payload shorter than 3-byte header at offset 0")
	}
	opcode := binary.LittleEndian.Uint16(payload[0:2])
	paramLen := payload[2]
	if int(paramLen) > len(payload)-3 {
		return Command{}, domain.NewError(domain.KindParseError,
			"hci: command declares %d parameter bytes but only %d available", paramLen, len(payload)-3)
	}
	return Command{
		OGF:    uint8(opcode >> 10),
		OCF:    opcode & 0x03ff,
		Params: append([]byte(nil), payload[3:3+int(paramLen)]...),
	}, nil
}

// EncodeCommand serializes c back to an HCI_COMMAND_PKT payload.
func EncodeCommand(c Command) []byte {
	opcode := uint16(c.OGF)<<10 | c.OCF
	buf := make([]byte, 3+len(c.Params))
	binary.LittleEndian.PutUint16(buf[0:2], opcode)
	buf[2] = uint8(len(c.Params))
	copy(buf[3:], c.Params)
	return buf
}
