// Package llcsnap decodes and encodes the LLC/SNAP header that sits
// between an 802.11 MPDU body and its Ethernet-typed payload (spec.md
// §4.1, §4.5). The Wi-Fi facade uses the decoded EtherType to separate
// EAPOL (0x888E, routed only to the embedded AP) from ordinary IP traffic
// (routed to the user-space IP stack).
package llcsnap

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/google/netsim/internal/core/domain"
)

// EtherTypeEAPOL identifies 802.1X frames, which must never reach the IP
// stack (spec.md §4.5 step 5).
const EtherTypeEAPOL = 0x888E

// Frame is a decoded LLC/SNAP header plus its Ethernet-typed payload.
type Frame struct {
	DSAP, SSAP uint8
	Control    uint8
	OUI        [3]byte
	EtherType  layers.EthernetType
	Payload    []byte
}

// Decode parses buf as LLC followed by a SNAP OUI/EtherType extension.
func Decode(buf []byte) (Frame, error) {
	pkt := gopacket.NewPacket(buf, layers.LayerTypeLLC, gopacket.DecodeOptions{Lazy: false, NoCopy: true})
	if err := pkt.ErrorLayer(); err != nil {
		return Frame{}, domain.NewError(domain.KindParseError, "llcsnap: decode failed at offset 0: %v", err.Error())
	}
	llcLayer := pkt.Layer(layers.LayerTypeLLC)
	if llcLayer == nil {
		return Frame{}, domain.NewError(domain.KindParseError, "llcsnap: no LLC header found at offset 0")
	}
	llc := llcLayer.(*layers.LLC)

	f := Frame{DSAP: llc.DSAP, SSAP: llc.SSAP, Control: llc.Control}

	if snapLayer := pkt.Layer(layers.LayerTypeSNAP); snapLayer != nil {
		snap := snapLayer.(*layers.SNAP)
		f.OUI = snap.OrganizationalCode
		f.EtherType = snap.Type
		f.Payload = snap.Payload
	} else if app := pkt.ApplicationLayer(); app != nil {
		f.Payload = app.Payload()
	}
	return f, nil
}

// Encode serializes an LLC/SNAP header and payload back to wire bytes.
func Encode(f Frame) ([]byte, error) {
	llc := layers.LLC{DSAP: f.DSAP, SSAP: f.SSAP, Control: f.Control}
	snap := layers.SNAP{OrganizationalCode: f.OUI, Type: f.EtherType}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &llc, &snap, gopacket.Payload(f.Payload)); err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "llcsnap: encode failed")
	}
	return buf.Bytes(), nil
}
