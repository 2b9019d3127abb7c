// Package wifi implements C5: 802.11 frame routing between stations. Per
// spec.md §1/§9, the embedded hostapd AP and user-space IP stack are
// external collaborators out of scope beyond their facade boundary; this
// package forwards EAPOL and IP-destined frames to their addressed peer
// exactly as the in-memory test double design note (§9) describes, and
// handles ARP itself against a virtual gateway as spec.md §4.5 step 6
// requires explicitly (the one piece of the AP/IP-stack boundary the spec
// does not leave external).
package wifi

import (
	"context"
	"net"
	"sync"

	"github.com/google/netsim/internal/adapters/codec/arp"
	"github.com/google/netsim/internal/adapters/codec/dot11"
	"github.com/google/netsim/internal/adapters/codec/hwsim"
	"github.com/google/netsim/internal/adapters/codec/llcsnap"
	"github.com/google/netsim/internal/adapters/codec/netlink"
	"github.com/google/netsim/internal/adapters/facade/common"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/telemetry"
)

// gatewayIP is the facade's virtual gateway address, used to answer ARP
// requests from stations without a real uplink (spec.md §4.5 step 6).
var gatewayIP = net.IPv4(192, 168, 49, 1)
var gatewayMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

type stationState struct {
	chipId  uint32
	address net.HardwareAddr
	sink    ports.ResponseSink
}

// Facade implements ports.Facade for ChipKindWifi chips.
type Facade struct {
	scene ports.SceneStore
	pcap  ports.PcapManager
	bcast *common.Broadcaster

	mu         sync.RWMutex
	byChip     map[uint32]*stationState
	byHwAddr   map[string]*stationState
}

// New returns a Wi-Fi Facade.
func New(scene ports.SceneStore, pcap ports.PcapManager) *Facade {
	return &Facade{
		scene:    scene,
		pcap:     pcap,
		bcast:    &common.Broadcaster{Scene: scene},
		byChip:   make(map[uint32]*stationState),
		byHwAddr: make(map[string]*stationState),
	}
}

var _ ports.Facade = (*Facade)(nil)

func radioOf(c domain.Chip) domain.Radio { return c.Radio }

// stationAddress derives a deterministic 48-bit hwsim station address
// from the chip id, mirroring bluetooth.addressFor's approach.
func stationAddress(chipId uint32) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, byte(chipId >> 24), byte(chipId >> 16), byte(chipId >> 8), byte(chipId)}
}

// RegisterSink associates chipId's outbound stream with the facade.
func (f *Facade) RegisterSink(chipId uint32, sink ports.ResponseSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.byChip[chipId]; ok {
		st.sink = sink
	}
}

// Add allocates a station address for a newly attached Wi-Fi chip.
func (f *Facade) Add(ctx context.Context, chip domain.Chip, deviceName string) (uint32, error) {
	st := &stationState{chipId: chip.Id, address: stationAddress(chip.Id)}
	f.mu.Lock()
	f.byChip[chip.Id] = st
	f.byHwAddr[st.address.String()] = st
	f.mu.Unlock()
	return chip.Id, nil
}

// Remove releases a chip's station entry.
func (f *Facade) Remove(ctx context.Context, facadeId uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.byChip[facadeId]; ok {
		delete(f.byHwAddr, st.address.String())
		delete(f.byChip, facadeId)
	}
	return nil
}

// Reset is a no-op: counters live in the scene store.
func (f *Facade) Reset(ctx context.Context, facadeId uint32) error { return nil }

// Patch is a no-op: radio state/range already live in the scene store.
func (f *Facade) Patch(ctx context.Context, facadeId uint32, radio domain.Radio) error { return nil }

// Get reads the chip's radio back out of the scene store.
func (f *Facade) Get(ctx context.Context, facadeId uint32) (domain.Radio, error) {
	chip, _, err := f.scene.GetChip(ctx, facadeId)
	if err != nil {
		return domain.Radio{}, err
	}
	return chip.Radio, nil
}

// HandleRequest processes one hwsim netlink frame from chipId: taps to
// pcap, decodes the 802.11 header, and dispatches by destination per
// spec.md §4.5.
func (f *Facade) HandleRequest(ctx context.Context, chipId uint32, payload []byte) error {
	chip, _, err := f.scene.GetChip(ctx, chipId)
	if err != nil {
		return err
	}
	if chip.Radio.State != domain.RadioStateOn {
		telemetry.FramesDropped.WithLabelValues("wifi", "radio_off").Inc()
		return nil
	}

	nlMsg, err := netlink.Decode(payload)
	if err != nil {
		return err
	}
	attrs, err := hwsim.Decode(nlMsg.Attributes)
	if err != nil {
		return err
	}
	mpdu, ok := hwsim.Find(attrs, hwsim.AttrFrame)
	if !ok {
		return domain.NewError(domain.KindParseError, "wifi: hwsim message for chip %d carries no frame attribute", chipId)
	}

	f.pcap.WriteFrame(ctx, chipId, mpdu)
	f.scene.RecordTraffic(ctx, chipId, 1, int64(len(mpdu)), 0, 0)

	frame, err := dot11.Decode(mpdu)
	if err != nil {
		return err
	}

	if arpReply, handled := f.tryHandleArp(frame); handled {
		return f.deliverTo(ctx, chipId, frame.Addresses.Transmitter, arpReply)
	}

	// EAPOL and ordinary IP traffic both forward to the addressed receiver
	// (the hostapd/IP-stack internals they would otherwise traverse are
	// out of scope; this preserves the externally observable delivery).
	return f.deliverTo(ctx, chipId, frame.Addresses.Receiver, mpdu)
}

func (f *Facade) tryHandleArp(frame dot11.Frame) ([]byte, bool) {
	llc, err := llcsnap.Decode(frame.Payload)
	if err != nil || llc.EtherType != 0x0806 { // ARP
		return nil, false
	}
	req, err := arp.Decode(llc.Payload)
	if err != nil || req.Operation != 1 { // only answer requests
		return nil, false
	}
	if !req.TargetProto.Equal(gatewayIP) {
		return nil, false
	}
	reply := arp.Packet{
		Operation:   2,
		SenderHW:    gatewayMAC,
		SenderProto: gatewayIP,
		TargetHW:    req.SenderHW,
		TargetProto: req.SenderProto,
	}
	encoded, err := arp.Encode(reply)
	if err != nil {
		return nil, false
	}
	return encoded, true
}

// deliverTo re-encodes an hwsim frame addressed to the station matching
// receiver and queues it on that chip's response stream, per spec.md
// §4.5 step 4.
func (f *Facade) deliverTo(ctx context.Context, sourceChipId uint32, receiver net.HardwareAddr, payload []byte) error {
	f.mu.RLock()
	st, ok := f.byHwAddr[receiver.String()]
	f.mu.RUnlock()
	if !ok || st.sink == nil {
		telemetry.FramesDropped.WithLabelValues("wifi", "no_route").Inc()
		return nil
	}

	peers, err := f.bcast.Reachable(ctx, sourceChipId, domain.ChipKindWifi, radioOf)
	if err != nil {
		return err
	}
	// A reply to the sending station itself (the ARP answer) needs no range check.
	reachable := st.chipId == sourceChipId
	for _, p := range peers {
		if p.ChipId == st.chipId {
			reachable = true
			break
		}
	}
	if !reachable {
		telemetry.FramesDropped.WithLabelValues("wifi", "out_of_range").Inc()
		return nil
	}

	encoded := encodeHwsimFrame(payload)
	if err := st.sink.Send(st.chipId, encoded); err != nil {
		telemetry.FramesDropped.WithLabelValues("wifi", "backpressure").Inc()
		return nil
	}
	f.pcap.WriteFrame(ctx, st.chipId, payload)
	f.scene.RecordTraffic(ctx, st.chipId, 0, 0, 1, int64(len(payload)))
	telemetry.FramesRouted.WithLabelValues("wifi").Inc()
	return nil
}

func encodeHwsimFrame(mpdu []byte) []byte {
	attrs := hwsim.Encode([]hwsim.Attribute{{Type: hwsim.AttrFrame, Value: mpdu}})
	return netlink.Encode(netlink.Message{Attributes: attrs})
}
