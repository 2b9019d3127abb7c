package ports

import (
	"context"
	"time"

	"github.com/google/netsim/internal/core/domain"
)

// SceneStore is the in-memory registry of devices and chips, guarded by a
// single writer-exclusive lock (spec.md §4.2). Readers get a deep-copied
// snapshot so they never observe a torn write.
type SceneStore interface {
	CreateDevice(ctx context.Context, create domain.DeviceCreate) (domain.Device, error)
	// AttachChip finds deviceName if it already exists and adds a chip to
	// it, or creates the device with this as its first chip otherwise
	// (spec.md §4.7: "scene.create_or_find_device then facade.add(chip)").
	AttachChip(ctx context.Context, deviceName string, deviceKind domain.DeviceKind, chip domain.ChipCreate) (domain.Device, domain.Chip, error)
	PatchDevice(ctx context.Context, idOrName string, patch domain.PatchFields) error
	DeleteChip(ctx context.Context, chipId uint32) error
	ListDevices(ctx context.Context) domain.Scene
	// Subscribe resolves once the scene version has advanced past since, or
	// after a 15s timeout, whichever comes first.
	Subscribe(ctx context.Context, since time.Time) domain.Scene
	Reset(ctx context.Context) error

	// GetChip looks up a chip and its owning device by chip id, used by
	// facades and transports that only carry a chip_id.
	GetChip(ctx context.Context, chipId uint32) (domain.Chip, domain.Device, error)
	// PatchChipRadio flips a single chip's radio state without a full
	// PatchFields round trip; used by facades reporting a link failure.
	PatchChipRadio(ctx context.Context, chipId uint32, state domain.RadioState) error
	// RecordTraffic adds to a chip's counters. Counter-only changes never
	// bump LastModified (spec.md §3).
	RecordTraffic(ctx context.Context, chipId uint32, txFrames, txBytes, rxFrames, rxBytes int64)
}
