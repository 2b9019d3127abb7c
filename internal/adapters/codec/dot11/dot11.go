// Package dot11 decodes and encodes IEEE 802.11 MAC headers and derives
// the (receiver, transmitter, destination, source) address mapping that
// is authoritative for Wi-Fi routing (spec.md §4.1, §4.5). The header
// variant is selected by the (to_ds, from_ds) flag pair: IBSS, FromAp,
// ToAp, Wds, each with a distinct address-field layout per 802.11.
package dot11

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/google/netsim/internal/core/domain"
)

// Variant names the header shape chosen by (to_ds, from_ds).
type Variant int

const (
	VariantIBSS Variant = iota
	VariantFromAP
	VariantToAP
	VariantWDS
)

func (v Variant) String() string {
	switch v {
	case VariantFromAP:
		return "FromAp"
	case VariantToAP:
		return "ToAp"
	case VariantWDS:
		return "Wds"
	default:
		return "IBSS"
	}
}

// Addresses is the routing-relevant address mapping derived from a
// decoded header.
type Addresses struct {
	Receiver    net.HardwareAddr
	Transmitter net.HardwareAddr
	Destination net.HardwareAddr
	Source      net.HardwareAddr
}

// Frame is a decoded 802.11 MPDU: the MAC header, its derived addresses,
// and the frame body (LLC/SNAP or higher).
type Frame struct {
	Header    layers.Dot11
	Variant   Variant
	Addresses Addresses
	Payload   []byte
}

// Decode parses buf as an 802.11 MPDU. Any gopacket decode error is
// surfaced as a domain.ParseError; the offset is reported as 0 since
// gopacket does not expose a finer-grained failure position.
func Decode(buf []byte) (Frame, error) {
	pkt := gopacket.NewPacket(buf, layers.LayerTypeDot11, gopacket.DecodeOptions{Lazy: false, NoCopy: true})
	if err := pkt.ErrorLayer(); err != nil {
		return Frame{}, domain.NewError(domain.KindParseError, "dot11: decode failed at offset 0: %v", err.Error())
	}
	dot11Layer := pkt.Layer(layers.LayerTypeDot11)
	if dot11Layer == nil {
		return Frame{}, domain.NewError(domain.KindParseError, "dot11: no 802.11 header found at offset 0")
	}
	d := *dot11Layer.(*layers.Dot11)

	variant, addrs := resolveAddresses(d)

	var payload []byte
	if app := pkt.ApplicationLayer(); app != nil {
		payload = app.Payload()
	} else if d.Payload != nil {
		payload = d.Payload
	}

	return Frame{Header: d, Variant: variant, Addresses: addrs, Payload: payload}, nil
}

func resolveAddresses(d layers.Dot11) (Variant, Addresses) {
	toDS := d.Flags.ToDS()
	fromDS := d.Flags.FromDS()

	switch {
	case !toDS && !fromDS:
		return VariantIBSS, Addresses{Receiver: d.Address1, Transmitter: d.Address2, Destination: d.Address1, Source: d.Address2}
	case !toDS && fromDS:
		return VariantFromAP, Addresses{Receiver: d.Address1, Transmitter: d.Address2, Destination: d.Address1, Source: d.Address3}
	case toDS && !fromDS:
		return VariantToAP, Addresses{Receiver: d.Address1, Transmitter: d.Address2, Destination: d.Address3, Source: d.Address2}
	default:
		return VariantWDS, Addresses{Receiver: d.Address1, Transmitter: d.Address2, Destination: d.Address3, Source: d.Address4}
	}
}

// Encode serializes a header and payload back to wire bytes.
func Encode(d layers.Dot11, payload []byte) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &d, gopacket.Payload(payload)); err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "dot11: encode failed")
	}
	return buf.Bytes(), nil
}
