// Package uwb implements C6: ranging-frame dispatch between UWB chips.
// Per spec.md §4.6, no ranging protocol is emulated beyond on/off gating
// and counters — every frame from one chip is broadcast verbatim to every
// other UWB chip currently in range.
package uwb

import (
	"context"
	"sync"

	"github.com/google/netsim/internal/adapters/facade/common"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/telemetry"
)

// Facade implements ports.Facade for ChipKindUwb chips.
type Facade struct {
	scene ports.SceneStore
	pcap  ports.PcapManager
	bcast *common.Broadcaster

	mu    sync.RWMutex
	sinks map[uint32]ports.ResponseSink
}

// New returns a UWB Facade wired to the shared scene store, pcap manager,
// and a per-chip response sink registered by the transport layer.
func New(scene ports.SceneStore, pcap ports.PcapManager) *Facade {
	return &Facade{
		scene: scene,
		pcap:  pcap,
		bcast: &common.Broadcaster{Scene: scene},
		sinks: make(map[uint32]ports.ResponseSink),
	}
}

var _ ports.Facade = (*Facade)(nil)

func radioOf(c domain.Chip) domain.Radio { return c.Radio }

// RegisterSink associates chipId's outbound stream with the facade so
// broadcast frames can be delivered to it. Called by the transport layer
// alongside Add.
func (f *Facade) RegisterSink(chipId uint32, sink ports.ResponseSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks[chipId] = sink
}

// Add is a no-op beyond bookkeeping: UWB has no facade-private handle
// table distinct from the chip id itself.
func (f *Facade) Add(ctx context.Context, chip domain.Chip, deviceName string) (uint32, error) {
	return chip.Id, nil
}

// Remove drops chipId's response sink.
func (f *Facade) Remove(ctx context.Context, facadeId uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sinks, facadeId)
	return nil
}

// Reset is a no-op: counters live in the scene store, zeroed by its own
// Reset.
func (f *Facade) Reset(ctx context.Context, facadeId uint32) error { return nil }

// Patch is a no-op: radio state/range already lives in the scene store.
func (f *Facade) Patch(ctx context.Context, facadeId uint32, radio domain.Radio) error { return nil }

// Get reads the chip's radio back out of the scene store.
func (f *Facade) Get(ctx context.Context, facadeId uint32) (domain.Radio, error) {
	chip, _, err := f.scene.GetChip(ctx, facadeId)
	if err != nil {
		return domain.Radio{}, err
	}
	return chip.Radio, nil
}

// HandleRequest broadcasts payload to every in-range UWB chip.
func (f *Facade) HandleRequest(ctx context.Context, chipId uint32, payload []byte) error {
	chip, _, err := f.scene.GetChip(ctx, chipId)
	if err != nil {
		return err
	}
	if chip.Radio.State != domain.RadioStateOn {
		telemetry.FramesDropped.WithLabelValues("uwb", "radio_off").Inc()
		return nil
	}

	f.pcap.WriteFrame(ctx, chipId, payload)
	f.scene.RecordTraffic(ctx, chipId, 1, int64(len(payload)), 0, 0)

	peers, err := f.bcast.Reachable(ctx, chipId, domain.ChipKindUwb, radioOf)
	if err != nil {
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, peer := range peers {
		sink, ok := f.sinks[peer.ChipId]
		if !ok {
			continue
		}
		if err := sink.Send(peer.ChipId, payload); err != nil {
			telemetry.FramesDropped.WithLabelValues("uwb", "backpressure").Inc()
			continue
		}
		f.pcap.WriteFrame(ctx, peer.ChipId, payload)
		f.scene.RecordTraffic(ctx, peer.ChipId, 0, 0, 1, int64(len(payload)))
		telemetry.FramesRouted.WithLabelValues("uwb").Inc()
	}
	return nil
}
