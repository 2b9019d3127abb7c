// Package bluetooth implements C4: the HCI-to-link-layer bridge. Per
// spec.md §5, "the Bluetooth link-layer engine is single-threaded; all
// calls to it are serialized by a dedicated executor thread" — modeled
// here as one goroutine per Facade draining a command channel, standing
// in for the embedded third-party engine (rootcanal) per spec.md §1's
// "we specify only the facade boundary" and §9's note that the embedded
// engine is abstracted behind an interface with an in-memory test
// implementation that deterministically broadcasts to peers.
package bluetooth

import (
	"context"
	"encoding/binary"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/netsim/internal/adapters/codec/hci"
	"github.com/google/netsim/internal/adapters/facade/bluetooth/linklayer"
	"github.com/google/netsim/internal/adapters/facade/common"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/telemetry"
)

type chipState struct {
	mu          sync.Mutex
	chipId      uint32
	kind        domain.ChipKind
	address     [6]byte
	sink        ports.ResponseSink
	advertising bool
	stopAdv     chan struct{}
	ltk         [16]byte
	ltkSet      bool
}

// Facade implements ports.Facade for BtLowEnergy, BtClassic, and
// BleBeacon chips.
type Facade struct {
	scene ports.SceneStore
	pcap  ports.PcapManager
	bcast *common.Broadcaster

	cmds chan command

	mu    sync.RWMutex
	chips map[uint32]*chipState
}

type command struct {
	chipId  uint32
	payload []byte
	done    chan error
}

// New starts the Facade's dedicated executor goroutine.
func New(scene ports.SceneStore, pcap ports.PcapManager) *Facade {
	f := &Facade{
		scene: scene,
		pcap:  pcap,
		bcast: &common.Broadcaster{Scene: scene},
		cmds:  make(chan command, 256),
		chips: make(map[uint32]*chipState),
	}
	go f.run()
	return f
}

var _ ports.Facade = (*Facade)(nil)

func radioOf(kind domain.ChipKind) func(domain.Chip) domain.Radio {
	return func(c domain.Chip) domain.Radio {
		if kind == domain.ChipKindBtClassic {
			return c.Classic
		}
		return c.LowEnergy
	}
}

func (f *Facade) run() {
	for cmd := range f.cmds {
		cmd.done <- f.process(context.Background(), cmd.chipId, cmd.payload)
	}
}

// addressFor derives a deterministic 48-bit BD_ADDR from a chip id so
// peers have a stable, human-inspectable address without requiring a
// caller-supplied one.
func addressFor(chipId uint32) [6]byte {
	var addr [6]byte
	addr[0] = 0xc0
	binary.BigEndian.PutUint32(addr[1:5], chipId)
	addr[5] = 0xde
	return addr
}

// RegisterSink associates chipId's outbound stream with the facade.
func (f *Facade) RegisterSink(chipId uint32, sink ports.ResponseSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cs, ok := f.chips[chipId]; ok {
		cs.sink = sink
	}
}

// Add registers a newly attached Bluetooth chip and, for BleBeacon chips,
// starts its synthetic advertising schedule from AdvertiseSettings.
func (f *Facade) Add(ctx context.Context, chip domain.Chip, deviceName string) (uint32, error) {
	addr := addressFor(chip.Id)
	if chip.Beacon != nil && chip.Beacon.Address != "" {
		if parsed, ok := parseAddress(chip.Beacon.Address); ok {
			addr = parsed
		}
	}

	cs := &chipState{chipId: chip.Id, kind: chip.Kind, address: addr}

	f.mu.Lock()
	f.chips[chip.Id] = cs
	f.mu.Unlock()

	if chip.Kind == domain.ChipKindBleBeacon {
		f.startAdvertising(cs, chip.Beacon)
	}
	return chip.Id, nil
}

// Remove stops any advertising schedule and releases the chip's state.
func (f *Facade) Remove(ctx context.Context, facadeId uint32) error {
	f.mu.Lock()
	cs, ok := f.chips[facadeId]
	delete(f.chips, facadeId)
	f.mu.Unlock()
	if ok {
		f.stopAdvertising(cs)
	}
	return nil
}

// Reset stops advertising; the scene store's own Reset zeroes counters.
func (f *Facade) Reset(ctx context.Context, facadeId uint32) error {
	f.mu.RLock()
	cs, ok := f.chips[facadeId]
	f.mu.RUnlock()
	if ok {
		f.stopAdvertising(cs)
	}
	return nil
}

// Patch reacts to a radio being turned Off by stopping advertising; no
// action is needed for On since HandleRequest re-checks scene state.
func (f *Facade) Patch(ctx context.Context, facadeId uint32, radio domain.Radio) error {
	if radio.State == domain.RadioStateOff {
		f.mu.RLock()
		cs, ok := f.chips[facadeId]
		f.mu.RUnlock()
		if ok {
			f.stopAdvertising(cs)
		}
	}
	return nil
}

// Get reads the chip's active radio back out of the scene store.
func (f *Facade) Get(ctx context.Context, facadeId uint32) (domain.Radio, error) {
	chip, _, err := f.scene.GetChip(ctx, facadeId)
	if err != nil {
		return domain.Radio{}, err
	}
	return *chip.ActiveRadio(), nil
}

// HandleRequest enqueues an inbound HCI H4 frame for serialized
// processing by the executor goroutine.
func (f *Facade) HandleRequest(ctx context.Context, chipId uint32, payload []byte) error {
	done := make(chan error, 1)
	select {
	case f.cmds <- command{chipId: chipId, payload: payload, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Facade) process(ctx context.Context, chipId uint32, payload []byte) error {
	chip, _, err := f.scene.GetChip(ctx, chipId)
	if err != nil {
		return err
	}
	radio := *chip.ActiveRadio()
	if radio.State != domain.RadioStateOn {
		telemetry.FramesDropped.WithLabelValues("bluetooth", "radio_off").Inc()
		return nil
	}

	f.pcap.WriteFrame(ctx, chipId, payload)
	f.scene.RecordTraffic(ctx, chipId, 1, int64(len(payload)), 0, 0)

	frame, _, err := hci.DecodeFrame(payload)
	if err != nil {
		return err
	}

	switch frame.Type {
	case hci.PacketTypeCommand:
		return f.handleCommand(ctx, chipId, chip.Kind, frame.Payload)
	default:
		// ACL/SCO data: delivered to the in-range peer(s) unmodified, the
		// simplest faithful rendering of the in-memory test engine's
		// "deterministically broadcasts to all peers" behavior (spec.md §9).
		return f.broadcastToPeers(ctx, chipId, chip.Kind, payload)
	}
}

func (f *Facade) handleCommand(ctx context.Context, chipId uint32, kind domain.ChipKind, payload []byte) error {
	cmd, err := hci.DecodeCommand(payload)
	if err != nil {
		return err
	}

	f.mu.RLock()
	cs := f.chips[chipId]
	f.mu.RUnlock()

	if cmd.OGF == hci.OgfLEControl && cmd.OCF == hci.OcfLESetAdvertiseEnable {
		enabled := len(cmd.Params) > 0 && cmd.Params[0] == 1
		if cs != nil {
			if enabled {
				f.startAdvertising(cs, nil)
			} else {
				f.stopAdvertising(cs)
			}
		}
	}

	if cmd.OGF == hci.OgfLEControl && cmd.OCF == hci.OcfLEStartEncryption && cs != nil {
		if err := f.deriveSessionKey(cs, cmd.Params); err != nil {
			return err
		}
	}

	if cs != nil && cs.sink != nil {
		event := hci.EncodeFrame(hci.Packet{Type: hci.PacketTypeEvent, Payload: commandCompleteEvent(cmd)})
		cs.sink.Send(cs.chipId, event)
	}
	return nil
}

// deriveSessionKey computes cs's simulated LTK from the rand/EDIV bytes
// the host supplied with LE Start Encryption, standing in for the
// embedded engine's real SMP key exchange (spec.md §9).
func (f *Facade) deriveSessionKey(cs *chipState, entropy []byte) error {
	ltk, err := linklayer.DeriveLTK(cs.address, entropy)
	if err != nil {
		return err
	}
	cs.mu.Lock()
	cs.ltk = ltk
	cs.ltkSet = true
	cs.mu.Unlock()
	log.Printf("bluetooth: derived session key for chip %d", cs.chipId)
	return nil
}

func commandCompleteEvent(cmd hci.Command) []byte {
	opcode := uint16(cmd.OGF)<<10 | cmd.OCF
	buf := make([]byte, 5)
	buf[0] = hci.EventCommandComplete
	buf[1] = 3 // parameter length
	buf[2] = 1 // num_hci_command_packets
	binary.LittleEndian.PutUint16(buf[3:5], opcode)
	return buf
}

// advertisingReportEvent builds a minimal LE Meta advertising-report event
// whose transmitter address peers can read back out, per S4's assertion
// that the report's transmitter address matches the advertiser's.
func advertisingReportEvent(addr [6]byte) []byte {
	buf := make([]byte, 9)
	buf[0] = hci.EventLEMetaEvent
	buf[1] = 7 // parameter length
	buf[2] = hci.LEMetaAdvertisingReport
	copy(buf[3:9], addr[:])
	return buf
}

func (f *Facade) startAdvertising(cs *chipState, beacon *domain.BeaconState) {
	cs.mu.Lock()
	if cs.advertising {
		cs.mu.Unlock()
		return
	}
	cs.advertising = true
	stop := make(chan struct{})
	cs.stopAdv = stop
	cs.mu.Unlock()

	interval := 100 * time.Millisecond
	var timeout <-chan time.Time
	if beacon != nil {
		interval = time.Duration(beacon.Settings.Mode.IntervalMillis(beacon.Settings.IntervalMillis)) * time.Millisecond
		if beacon.Settings.TimeoutMillis > 0 {
			timer := time.NewTimer(time.Duration(beacon.Settings.TimeoutMillis) * time.Millisecond)
			timeout = timer.C
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		f.emitAdvertisement(cs)
		for {
			select {
			case <-stop:
				return
			case <-timeout:
				f.stopAdvertising(cs)
				return
			case <-ticker.C:
				f.emitAdvertisement(cs)
			}
		}
	}()
}

func (f *Facade) stopAdvertising(cs *chipState) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if !cs.advertising {
		return
	}
	cs.advertising = false
	close(cs.stopAdv)
	cs.stopAdv = nil
}

func (f *Facade) emitAdvertisement(cs *chipState) {
	ctx := context.Background()
	event := hci.EncodeFrame(hci.Packet{Type: hci.PacketTypeEvent, Payload: advertisingReportEvent(cs.address)})
	f.broadcastToPeers(ctx, cs.chipId, cs.kind, event)
}

// broadcastToPeers delivers payload to every reachable chip of the same
// Bluetooth kind, matching the in-memory test engine's behavior the
// design notes describe for the embedded link-layer stack.
func (f *Facade) broadcastToPeers(ctx context.Context, chipId uint32, kind domain.ChipKind, payload []byte) error {
	peers, err := f.bcast.Reachable(ctx, chipId, kind, radioOf(kind))
	if err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, peer := range peers {
		cs, ok := f.chips[peer.ChipId]
		if !ok || cs.sink == nil {
			continue
		}
		if err := cs.sink.Send(peer.ChipId, payload); err != nil {
			telemetry.FramesDropped.WithLabelValues("bluetooth", "backpressure").Inc()
			continue
		}
		f.pcap.WriteFrame(ctx, peer.ChipId, payload)
		f.scene.RecordTraffic(ctx, peer.ChipId, 0, 0, 1, int64(len(payload)))
		telemetry.FramesRouted.WithLabelValues("bluetooth").Inc()
	}
	return nil
}

func parseAddress(s string) ([6]byte, bool) {
	var addr [6]byte
	mac, err := net.ParseMAC(s)
	if err != nil || len(mac) != 6 {
		return addr, false
	}
	copy(addr[:], mac)
	return addr, true
}
