// Package router dispatches an attaching chip to the facade matching its
// kind (spec.md §2: "dispatch by chip-kind" between C7 and C4/C5/C6),
// shared by every ingress path (gRPC, vsock, raw HCI TCP).
package router

import (
	"context"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
)

// FacadeRouter picks the facade for a chip kind. Bluetooth covers both
// BtClassic and BtLowEnergy chips (and beacons, which are BLE variants).
type FacadeRouter struct {
	Bluetooth ports.Facade
	Wifi      ports.Facade
	Uwb       ports.Facade
}

// For returns the facade handling kind, or an error if no facade covers it.
func (r *FacadeRouter) For(kind domain.ChipKind) (ports.Facade, error) {
	switch kind {
	case domain.ChipKindBtClassic, domain.ChipKindBtLowEnergy, domain.ChipKindBleBeacon:
		return r.Bluetooth, nil
	case domain.ChipKindWifi:
		return r.Wifi, nil
	case domain.ChipKindUwb:
		return r.Uwb, nil
	default:
		return nil, domain.NewError(domain.KindInvalidArgument, "no facade for chip kind %v", kind)
	}
}

// Attach performs the common stream-open sequence (spec.md §4.7): create
// or find the device, register its chip with the scene store and kind
// facade, and bind sink as the chip's outbound queue.
func Attach(ctx context.Context, scene ports.SceneStore, facades *FacadeRouter, deviceName string, deviceKind domain.DeviceKind, cc domain.ChipCreate, sink ports.ResponseSink) (chipId uint32, err error) {
	_, chip, err := scene.AttachChip(ctx, deviceName, deviceKind, cc)
	if err != nil {
		return 0, err
	}

	f, err := facades.For(cc.Kind)
	if err != nil {
		return 0, err
	}
	if _, err := f.Add(ctx, chip, deviceName); err != nil {
		return 0, err
	}
	f.RegisterSink(chip.Id, sink)

	return chip.Id, nil
}

// Detach performs the common stream-close sequence: release the facade
// entry, then delete the chip (spec.md §4.7: "On stream close, for any
// reason: facade.remove(chip_id) then scene.delete_chip(chip_id)").
func Detach(ctx context.Context, scene ports.SceneStore, facades *FacadeRouter, kind domain.ChipKind, chipId uint32) {
	if f, err := facades.For(kind); err == nil {
		_ = f.Remove(ctx, chipId)
	}
	_ = scene.DeleteChip(ctx, chipId)
}
