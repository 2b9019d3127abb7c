// Package common holds the range/visibility gating and peer-lookup logic
// shared by all three radio-kind facades (spec.md §4.4 for the formula,
// applied identically by Wi-Fi and UWB): a frame from A is eligible for
// delivery to B iff both radios are On and the distance between their
// (device position + chip offset) is within the smaller of the two radio
// ranges.
package common

import (
	"context"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
)

// Peer is a sibling chip eligible to receive a broadcast, with its
// resolved world position.
type Peer struct {
	ChipId   uint32
	Position domain.Position
	Radio    domain.Radio
}

// Broadcaster resolves the set of same-kind chips a source chip may reach.
type Broadcaster struct {
	Scene ports.SceneStore
}

// chipPosition folds a chip's offset into its device's position.
func chipPosition(dev domain.Device, chip domain.Chip) domain.Position {
	if chip.Offset == nil {
		return dev.Position
	}
	return dev.Position.Add(*chip.Offset)
}

// InRange reports whether a and b are mutually visible: both radios On
// and within the smaller of their two ranges (spec.md §4.4).
func InRange(aPos domain.Position, aRadio domain.Radio, bPos domain.Position, bRadio domain.Radio) bool {
	if aRadio.State != domain.RadioStateOn || bRadio.State != domain.RadioStateOn {
		return false
	}
	limit := aRadio.Range
	if bRadio.Range < limit {
		limit = bRadio.Range
	}
	return aPos.Distance(bPos) <= float64(limit)
}

// Reachable returns every chip of kind reachable from sourceChipId, using
// radioOf to pick which Radio field matters for chips that carry more
// than one (Bluetooth's LowEnergy/Classic pair).
func (b *Broadcaster) Reachable(ctx context.Context, sourceChipId uint32, kind domain.ChipKind, radioOf func(domain.Chip) domain.Radio) ([]Peer, error) {
	sourceChip, sourceDev, err := b.Scene.GetChip(ctx, sourceChipId)
	if err != nil {
		return nil, err
	}
	sourceRadio := radioOf(sourceChip)
	sourcePos := chipPosition(sourceDev, sourceChip)

	scene := b.Scene.ListDevices(ctx)
	var peers []Peer
	for _, dev := range scene.Devices {
		for _, chip := range dev.Chips {
			if chip.Id == sourceChipId || chip.Kind != kind {
				continue
			}
			peerRadio := radioOf(chip)
			peerPos := chipPosition(dev, chip)
			if !InRange(sourcePos, sourceRadio, peerPos, peerRadio) {
				continue
			}
			peers = append(peers, Peer{ChipId: chip.Id, Position: peerPos, Radio: peerRadio})
		}
	}
	return peers, nil
}
