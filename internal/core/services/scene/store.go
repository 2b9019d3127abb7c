// Package scene implements C2: the in-memory registry of devices and chips
// guarded by a single writer-exclusive lock (spec.md §4.2).
package scene

import (
	"context"
	"sync"
	"time"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/core/services/eventbus"
	"github.com/google/netsim/internal/telemetry"
)

const subscribeTimeout = 15 * time.Second

// defaultRadioRange is applied to a chip created without an explicit
// range, so facades work out of the box the way spec.md §8's S4/S5
// scenarios assume without a prior range patch.
const defaultRadioRange = 1000.0

// Store implements ports.SceneStore. Grounded on the teacher's sharded
// DeviceRegistry (internal/core/services/registry/device_registry.go), but
// simplified to one lock: the spec requires one monotonic version counter
// across the whole scene, which sharding would only complicate.
type Store struct {
	mu           sync.Mutex
	devices      map[uint32]*domain.Device
	chips        map[uint32]*domain.Chip
	nextDeviceId uint32
	nextChipId   uint32
	lastModified time.Time

	// bus is the C9 event bus (register/unregister/publish): Subscribe's
	// long-poll waiters and the WebSocket broadcaster both wait on it, so
	// there is exactly one change-notification path in the process.
	bus *eventbus.Bus

	// radioPatched notifies the owning facade of a chip's new radio
	// state, so a radio-level side effect (bluetooth stopping
	// advertising on Off) actually fires when PatchDevice changes it.
	radioPatched func(chipId uint32, kind domain.ChipKind, radio domain.Radio)
}

// OnChipRadioPatch registers fn to run, outside the store's lock, after
// PatchDevice changes a chip's radio state. Wired once at startup to the
// facade router so facades learn of a radio-level change without the
// scene package importing them.
func (s *Store) OnChipRadioPatch(fn func(chipId uint32, kind domain.ChipKind, radio domain.Radio)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.radioPatched = fn
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		devices:      make(map[uint32]*domain.Device),
		chips:        make(map[uint32]*domain.Chip),
		lastModified: time.Now(),
		bus:          eventbus.New(),
	}
}

var _ ports.SceneStore = (*Store)(nil)

func (s *Store) touch() {
	s.lastModified = time.Now()
	telemetry.SceneVersion.Set(float64(s.lastModified.UnixNano()))
	s.bus.Publish()
}

// CreateDevice validates and allocates a new device with its chips.
func (s *Store) CreateDevice(ctx context.Context, create domain.DeviceCreate) (domain.Device, error) {
	if create.Name == "" {
		return domain.Device{}, domain.NewError(domain.KindInvalidArgument, "device name must not be empty")
	}
	if len(create.Chips) == 0 {
		return domain.Device{}, domain.NewError(domain.KindInvalidArgument, "device %q must have at least one chip", create.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		if d.Name == create.Name {
			return domain.Device{}, domain.NewError(domain.KindAlreadyExists, "device %q already exists", create.Name)
		}
	}

	s.nextDeviceId++
	deviceId := s.nextDeviceId
	dev := &domain.Device{
		Id:      deviceId,
		Guid:    newGuid(),
		Name:    create.Name,
		Kind:    create.Kind,
		Visible: true,
	}

	for _, cc := range create.Chips {
		s.nextChipId++
		chip := &domain.Chip{
			Id:           s.nextChipId,
			DeviceId:     deviceId,
			Kind:         cc.Kind,
			Name:         cc.Name,
			Manufacturer: cc.Manufacturer,
			ProductName:  cc.ProductName,
			Beacon:       cc.Beacon,
		}
		radio := chip.ActiveRadio()
		radio.State = domain.RadioStateOn
		radio.Range = cc.Range
		if radio.Range == 0 {
			radio.Range = defaultRadioRange
		}
		if chip.Beacon != nil && chip.Beacon.Address == "" {
			chip.Beacon.Address = cc.Address
		}
		s.chips[chip.Id] = chip
		dev.ChipIds = append(dev.ChipIds, chip.Id)
	}

	s.devices[deviceId] = dev
	s.touch()
	return cloneDevice(dev, s.chips), nil
}

// AttachChip finds deviceName if it already exists and adds a chip to it,
// or creates the device with this as its first chip otherwise (spec.md
// §4.7's "create_or_find_device" step of stream-open).
func (s *Store) AttachChip(ctx context.Context, deviceName string, deviceKind domain.DeviceKind, cc domain.ChipCreate) (domain.Device, domain.Chip, error) {
	s.mu.Lock()

	dev := s.findDeviceLocked(deviceName)
	if dev == nil {
		s.mu.Unlock()
		created, err := s.CreateDevice(ctx, domain.DeviceCreate{Name: deviceName, Kind: deviceKind, Chips: []domain.ChipCreate{cc}})
		if err != nil {
			return domain.Device{}, domain.Chip{}, err
		}
		s.mu.Lock()
		chip := *s.chips[created.ChipIds[0]]
		s.mu.Unlock()
		return created, chip, nil
	}

	s.nextChipId++
	chip := &domain.Chip{
		Id:           s.nextChipId,
		DeviceId:     dev.Id,
		Kind:         cc.Kind,
		Name:         cc.Name,
		Manufacturer: cc.Manufacturer,
		ProductName:  cc.ProductName,
		Beacon:       cc.Beacon,
	}
	radio := chip.ActiveRadio()
	radio.State = domain.RadioStateOn
	radio.Range = cc.Range
	if radio.Range == 0 {
		radio.Range = defaultRadioRange
	}
	if chip.Beacon != nil && chip.Beacon.Address == "" {
		chip.Beacon.Address = cc.Address
	}
	s.chips[chip.Id] = chip
	dev.ChipIds = append(dev.ChipIds, chip.Id)
	out := cloneDevice(dev, s.chips)
	s.touch()
	s.mu.Unlock()
	return out, *chip, nil
}

func (s *Store) findDeviceLocked(idOrName string) *domain.Device {
	for _, d := range s.devices {
		if d.Name == idOrName {
			return d
		}
	}
	if id, ok := parseUint32(idOrName); ok {
		return s.devices[id]
	}
	return nil
}

// PatchDevice applies a partial update, per spec.md §4.2: missing fields
// are left unmodified; a chip patch matches by id if present else by kind.
// Any chip whose radio state changes is reported to radioPatched once the
// lock is released, so the owning facade can react (spec.md §9's Patch
// capability).
func (s *Store) PatchDevice(ctx context.Context, idOrName string, patch domain.PatchFields) error {
	s.mu.Lock()

	dev := s.findDeviceLocked(idOrName)
	if dev == nil {
		s.mu.Unlock()
		return domain.NewError(domain.KindNotFound, "no device matches %q", idOrName)
	}

	if patch.Name != nil {
		dev.Name = *patch.Name
	}
	if patch.Visible != nil {
		dev.Visible = *patch.Visible
	}
	if patch.Position != nil {
		dev.Position = *patch.Position
	}
	if patch.Orientation != nil {
		dev.Orientation = domain.ClampOrientation(*patch.Orientation)
	}

	type radioChange struct {
		chipId uint32
		kind   domain.ChipKind
		radio  domain.Radio
	}
	var changes []radioChange

	for _, cp := range patch.Chips {
		chip := s.matchChipLocked(dev, cp)
		if chip == nil {
			continue
		}
		if cp.RadioState != nil {
			chip.ActiveRadio().State = *cp.RadioState
			changes = append(changes, radioChange{chipId: chip.Id, kind: chip.Kind, radio: *chip.ActiveRadio()})
		}
		if cp.CaptureState != nil {
			chip.CaptureState = *cp.CaptureState
		}
	}

	s.touch()
	notify := s.radioPatched
	s.mu.Unlock()

	if notify != nil {
		for _, c := range changes {
			notify(c.chipId, c.kind, c.radio)
		}
	}
	return nil
}

func (s *Store) matchChipLocked(dev *domain.Device, cp domain.ChipPatch) *domain.Chip {
	if cp.Id != 0 {
		if c, ok := s.chips[cp.Id]; ok && c.DeviceId == dev.Id {
			return c
		}
		return nil
	}
	for _, id := range dev.ChipIds {
		if c, ok := s.chips[id]; ok && c.Kind == cp.Kind {
			return c
		}
	}
	return nil
}

// DeleteChip removes a chip; if its device has none left, the device is
// removed too, in the same version increment (spec.md §8 property 7).
func (s *Store) DeleteChip(ctx context.Context, chipId uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chip, ok := s.chips[chipId]
	if !ok {
		return domain.NewError(domain.KindNotFound, "no chip with id %d", chipId)
	}
	delete(s.chips, chipId)

	dev := s.devices[chip.DeviceId]
	if dev != nil {
		remaining := dev.ChipIds[:0]
		for _, id := range dev.ChipIds {
			if id != chipId {
				remaining = append(remaining, id)
			}
		}
		dev.ChipIds = remaining
		if len(dev.ChipIds) == 0 {
			delete(s.devices, dev.Id)
		}
	}

	s.touch()
	return nil
}

// ListDevices returns a deep-copied snapshot, taken under the writer lock
// only long enough to copy pointers' contents (spec.md: "cheap snapshot").
func (s *Store) ListDevices(ctx context.Context) domain.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.Scene {
	out := domain.Scene{LastModified: s.lastModified}
	for _, d := range s.devices {
		out.Devices = append(out.Devices, cloneDevice(d, s.chips))
	}
	return out
}

// Subscribe resolves immediately if since predates the current version,
// otherwise waits for the next Publish or a 15s timeout (spec.md §4.2).
func (s *Store) Subscribe(ctx context.Context, since time.Time) domain.Scene {
	s.mu.Lock()
	if since.Before(s.lastModified) {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	ch := make(chan struct{}, 1)
	token := s.bus.Register(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
	s.mu.Unlock()
	defer s.bus.Unregister(token)

	select {
	case <-ch:
	case <-time.After(subscribeTimeout):
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Reset preserves chip counts but restores every chip and device to its
// post-attach default state (spec.md §4.2, §8 property 6).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		d.Position = domain.Position{}
		d.Orientation = domain.Orientation{}
	}
	for _, c := range s.chips {
		c.Radio.Reset()
		c.LowEnergy.Reset()
		c.Classic.Reset()
		c.CaptureState = domain.CaptureOff
		c.CaptureSize = 0
		c.CaptureRecords = 0
		c.CaptureTimestamp = 0
	}

	s.touch()
	return nil
}

// OnChange registers callback with the store's change notifications,
// returning an unregister function. Used by the Event Bus (C9) WebSocket
// broadcaster to push on every scene-version advance rather than poll.
func (s *Store) OnChange(callback func()) (unregister func()) {
	token := s.bus.Register(callback)
	return func() { s.bus.Unregister(token) }
}

// GetChip looks up a chip and its owning device.
func (s *Store) GetChip(ctx context.Context, chipId uint32) (domain.Chip, domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chip, ok := s.chips[chipId]
	if !ok {
		return domain.Chip{}, domain.Device{}, domain.NewError(domain.KindNotFound, "no chip with id %d", chipId)
	}
	dev := s.devices[chip.DeviceId]
	if dev == nil {
		return domain.Chip{}, domain.Device{}, domain.NewError(domain.KindNotFound, "chip %d has no owning device", chipId)
	}
	return *chip, *dev, nil
}

// PatchChipRadio flips a chip's radio state, used by facades reporting a
// link failure (spec.md §7: "Facade errors on a single chip disable that
// chip... the scene marks its radio Off").
func (s *Store) PatchChipRadio(ctx context.Context, chipId uint32, state domain.RadioState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chip, ok := s.chips[chipId]
	if !ok {
		return domain.NewError(domain.KindNotFound, "no chip with id %d", chipId)
	}
	chip.ActiveRadio().State = state
	s.touch()
	return nil
}

// RecordTraffic updates counters only; per spec.md §3 this never advances
// LastModified.
func (s *Store) RecordTraffic(ctx context.Context, chipId uint32, txFrames, txBytes, rxFrames, rxBytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chip, ok := s.chips[chipId]
	if !ok {
		return
	}
	r := chip.ActiveRadio()
	r.TxCount += txFrames
	r.TxBytes += txBytes
	r.RxCount += rxFrames
	r.RxBytes += rxBytes
}

func cloneDevice(d *domain.Device, chips map[uint32]*domain.Chip) domain.Device {
	out := *d
	out.ChipIds = append([]uint32(nil), d.ChipIds...)
	out.Chips = nil
	for _, id := range d.ChipIds {
		if c, ok := chips[id]; ok {
			out.Chips = append(out.Chips, *c)
		}
	}
	return out
}
