package scene

import (
	"context"
	"testing"
	"time"

	"github.com/google/netsim/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeviceAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	dev, err := s.CreateDevice(ctx, domain.DeviceCreate{
		Name: "beacon-1",
		Kind: domain.DeviceKindBeacon,
		Chips: []domain.ChipCreate{
			{Kind: domain.ChipKindBleBeacon, Address: "00:11:22:33:44:55"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), dev.Id)
	assert.Equal(t, "beacon-1", dev.Name)
	require.Len(t, dev.ChipIds, 1)

	scene := s.ListDevices(ctx)
	require.Len(t, scene.Devices, 1)
	assert.Equal(t, uint32(1), scene.Devices[0].Id)

	chip, owner, err := s.GetChip(ctx, dev.ChipIds[0])
	require.NoError(t, err)
	assert.Equal(t, domain.ChipKindBleBeacon, chip.Kind)
	assert.Equal(t, domain.RadioStateOn, chip.LowEnergy.State)
	assert.Equal(t, dev.Id, owner.Id)
}

func TestCreateDeviceRejectsDuplicateName(t *testing.T) {
	s := New()
	ctx := context.Background()
	create := domain.DeviceCreate{Name: "dup", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}}

	_, err := s.CreateDevice(ctx, create)
	require.NoError(t, err)

	_, err = s.CreateDevice(ctx, create)
	require.Error(t, err)
	assert.Equal(t, domain.KindAlreadyExists, domain.KindOf(err))
}

func TestPatchDevicePosition(t *testing.T) {
	s := New()
	ctx := context.Background()
	dev, err := s.CreateDevice(ctx, domain.DeviceCreate{Name: "emu-a", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}})
	require.NoError(t, err)

	before := s.ListDevices(ctx).LastModified

	pos := domain.Position{X: 1.1, Y: 2.2, Z: 3.3}
	err = s.PatchDevice(ctx, dev.Name, domain.PatchFields{Position: &pos})
	require.NoError(t, err)

	scene := s.ListDevices(ctx)
	assert.Equal(t, pos, scene.Devices[0].Position)
	assert.True(t, scene.LastModified.After(before))
}

func TestPatchDeviceNotFound(t *testing.T) {
	s := New()
	err := s.PatchDevice(context.Background(), "missing", domain.PatchFields{})
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestDeleteLastChipRemovesDevice(t *testing.T) {
	s := New()
	ctx := context.Background()
	dev, err := s.CreateDevice(ctx, domain.DeviceCreate{Name: "solo", Chips: []domain.ChipCreate{{Kind: domain.ChipKindUwb}}})
	require.NoError(t, err)

	err = s.DeleteChip(ctx, dev.ChipIds[0])
	require.NoError(t, err)

	scene := s.ListDevices(ctx)
	assert.Len(t, scene.Devices, 0)
}

func TestResetPreservesChipCountAndZeroesCounters(t *testing.T) {
	s := New()
	ctx := context.Background()
	dev, err := s.CreateDevice(ctx, domain.DeviceCreate{Name: "r", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}})
	require.NoError(t, err)
	s.RecordTraffic(ctx, dev.ChipIds[0], 5, 500, 2, 200)

	require.NoError(t, s.Reset(ctx))

	chip, _, err := s.GetChip(ctx, dev.ChipIds[0])
	require.NoError(t, err)
	assert.Equal(t, int64(0), chip.Radio.TxCount)
	assert.Equal(t, domain.RadioStateOn, chip.Radio.State)
	assert.Equal(t, domain.CaptureOff, chip.CaptureState)
}

func TestPatchDeviceNotifiesRadioPatchHookOnStateChange(t *testing.T) {
	s := New()
	ctx := context.Background()
	dev, err := s.CreateDevice(ctx, domain.DeviceCreate{Name: "beacon-1", Chips: []domain.ChipCreate{{Kind: domain.ChipKindBleBeacon}}})
	require.NoError(t, err)

	var gotChipId uint32
	var gotKind domain.ChipKind
	var gotRadio domain.Radio
	calls := 0
	s.OnChipRadioPatch(func(chipId uint32, kind domain.ChipKind, radio domain.Radio) {
		calls++
		gotChipId, gotKind, gotRadio = chipId, kind, radio
	})

	off := domain.RadioStateOff
	err = s.PatchDevice(ctx, dev.Name, domain.PatchFields{
		Chips: []domain.ChipPatch{{Id: dev.ChipIds[0], RadioState: &off}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, dev.ChipIds[0], gotChipId)
	assert.Equal(t, domain.ChipKindBleBeacon, gotKind)
	assert.Equal(t, domain.RadioStateOff, gotRadio.State)
}

func TestPatchDeviceSkipsRadioPatchHookWithoutRadioChange(t *testing.T) {
	s := New()
	ctx := context.Background()
	dev, err := s.CreateDevice(ctx, domain.DeviceCreate{Name: "quiet", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}})
	require.NoError(t, err)

	calls := 0
	s.OnChipRadioPatch(func(chipId uint32, kind domain.ChipKind, radio domain.Radio) { calls++ })

	name := "renamed"
	require.NoError(t, s.PatchDevice(ctx, dev.Name, domain.PatchFields{Name: &name}))
	assert.Equal(t, 0, calls)
}

func TestSubscribeReturnsImmediatelyForStaleSince(t *testing.T) {
	s := New()
	scene := s.Subscribe(context.Background(), time.Time{})
	assert.NotNil(t, scene)
}

func TestSubscribeWakesOnPatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	dev, err := s.CreateDevice(ctx, domain.DeviceCreate{Name: "w", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}})
	require.NoError(t, err)

	current := s.ListDevices(ctx).LastModified
	done := make(chan domain.Scene, 1)
	go func() {
		done <- s.Subscribe(context.Background(), current)
	}()

	time.Sleep(20 * time.Millisecond)
	visible := true
	require.NoError(t, s.PatchDevice(ctx, dev.Name, domain.PatchFields{Visible: &visible}))

	select {
	case scene := <-done:
		assert.True(t, scene.LastModified.After(current))
	case <-time.After(time.Second):
		t.Fatal("subscribe did not wake within 1s of a patch")
	}
}
