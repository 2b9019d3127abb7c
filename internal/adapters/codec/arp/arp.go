// Package arp decodes and encodes ARP packets exchanged between a Wi-Fi
// station and the facade's virtual gateway (spec.md §4.5 step 6).
package arp

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/google/netsim/internal/core/domain"
)

// Packet is a decoded ARP request or reply.
type Packet struct {
	Operation   uint16
	SenderHW    net.HardwareAddr
	SenderProto net.IP
	TargetHW    net.HardwareAddr
	TargetProto net.IP
}

// Decode parses buf (an Ethernet-II payload with EtherType 0x0806) as ARP.
func Decode(buf []byte) (Packet, error) {
	pkt := gopacket.NewPacket(buf, layers.LayerTypeARP, gopacket.DecodeOptions{Lazy: false, NoCopy: true})
	if err := pkt.ErrorLayer(); err != nil {
		return Packet{}, domain.NewError(domain.KindParseError, "arp: decode failed at offset 0: %v", err.Error())
	}
	arpLayer := pkt.Layer(layers.LayerTypeARP)
	if arpLayer == nil {
		return Packet{}, domain.NewError(domain.KindParseError, "arp: no ARP header found at offset 0")
	}
	a := arpLayer.(*layers.ARP)

	return Packet{
		Operation:   a.Operation,
		SenderHW:    net.HardwareAddr(a.SourceHwAddress),
		SenderProto: net.IP(a.SourceProtAddress),
		TargetHW:    net.HardwareAddr(a.DstHwAddress),
		TargetProto: net.IP(a.DstProtAddress),
	}, nil
}

// Encode serializes p back to wire bytes.
func Encode(p Packet) ([]byte, error) {
	a := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         p.Operation,
		SourceHwAddress:   []byte(p.SenderHW),
		SourceProtAddress: []byte(p.SenderProto.To4()),
		DstHwAddress:      []byte(p.TargetHW),
		DstProtAddress:    []byte(p.TargetProto.To4()),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &a); err != nil {
		return nil, domain.Wrap(domain.KindInternal, err, "arp: encode failed")
	}
	return buf.Bytes(), nil
}
