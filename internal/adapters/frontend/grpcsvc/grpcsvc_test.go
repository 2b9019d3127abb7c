package grpcsvc

import (
	"context"
	"testing"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/services/pcap"
	"github.com/google/netsim/internal/core/services/scene"
	"github.com/google/netsim/internal/rpc/netsimrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := scene.New()
	pm, err := pcap.New(t.TempDir())
	require.NoError(t, err)
	return &Server{Scene: store, Pcap: pm}
}

func TestGetVersion(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.GetVersion(context.Background(), &netsimrpc.GetVersionRequest{})
	require.NoError(t, err)
	assert.Equal(t, buildVersion, resp.Version)
}

func TestCreateDeviceAndListDevice(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	createResp, err := s.CreateDevice(ctx, &netsimrpc.DeviceCreateRequest{
		Device: netsimrpc.DeviceCreateWire{
			Name:  "pixel-1",
			Kind:  domain.DeviceKindEmulator,
			Chips: []netsimrpc.ChipCreateWire{{Kind: domain.ChipKindWifi}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "pixel-1", createResp.Device.Name)
	require.Len(t, createResp.Device.Chips, 1)
	assert.Equal(t, domain.ChipKindWifi, createResp.Device.Chips[0].Kind)

	listResp, err := s.ListDevice(ctx, &netsimrpc.ListDeviceRequest{})
	require.NoError(t, err)
	require.Len(t, listResp.Devices, 1)
	assert.Equal(t, "pixel-1", listResp.Devices[0].Name)
	require.Len(t, listResp.Devices[0].Chips, 1)
	assert.Equal(t, uint32(1), listResp.Devices[0].Chips[0].Id)
	assert.Equal(t, domain.ChipKindWifi, listResp.Devices[0].Chips[0].Kind)
	assert.Equal(t, domain.RadioStateOn, listResp.Devices[0].Chips[0].Radio.State)
}

func TestDeleteChipRemovesDevice(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	createResp, err := s.CreateDevice(ctx, &netsimrpc.DeviceCreateRequest{
		Device: netsimrpc.DeviceCreateWire{Name: "solo", Chips: []netsimrpc.ChipCreateWire{{Kind: domain.ChipKindUwb}}},
	})
	require.NoError(t, err)

	_, err = s.DeleteChip(ctx, &netsimrpc.DeleteChipRequest{ChipId: createResp.Device.Chips[0].Id})
	require.NoError(t, err)

	listResp, err := s.ListDevice(ctx, &netsimrpc.ListDeviceRequest{})
	require.NoError(t, err)
	assert.Len(t, listResp.Devices, 0)
}

func TestPatchDeviceUpdatesPosition(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.CreateDevice(ctx, &netsimrpc.DeviceCreateRequest{
		Device: netsimrpc.DeviceCreateWire{Name: "patchable", Chips: []netsimrpc.ChipCreateWire{{Kind: domain.ChipKindWifi}}},
	})
	require.NoError(t, err)

	pos := domain.Position{X: 9, Y: 8, Z: 7}
	_, err = s.PatchDevice(ctx, &netsimrpc.PatchDeviceRequest{IdOrName: "patchable", Position: &pos})
	require.NoError(t, err)

	listResp, err := s.ListDevice(ctx, &netsimrpc.ListDeviceRequest{})
	require.NoError(t, err)
	require.Len(t, listResp.Devices, 1)
	assert.Equal(t, pos, listResp.Devices[0].Position)
}

func TestResetKeepsDevices(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	_, err := s.CreateDevice(ctx, &netsimrpc.DeviceCreateRequest{
		Device: netsimrpc.DeviceCreateWire{Name: "r", Chips: []netsimrpc.ChipCreateWire{{Kind: domain.ChipKindWifi}}},
	})
	require.NoError(t, err)

	_, err = s.Reset(ctx, &netsimrpc.ResetRequest{})
	require.NoError(t, err)

	listResp, err := s.ListDevice(ctx, &netsimrpc.ListDeviceRequest{})
	require.NoError(t, err)
	assert.Len(t, listResp.Devices, 1)
}

func TestListCaptureReturnsRegisteredChips(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	createResp, err := s.CreateDevice(ctx, &netsimrpc.DeviceCreateRequest{
		Device: netsimrpc.DeviceCreateWire{Name: "cap", Chips: []netsimrpc.ChipCreateWire{{Kind: domain.ChipKindWifi}}},
	})
	require.NoError(t, err)

	require.NoError(t, s.Pcap.Register(ctx, createResp.Device.Chips[0].Id, "cap", domain.ChipKindWifi))

	listResp, err := s.ListCapture(ctx, &netsimrpc.ListCaptureRequest{})
	require.NoError(t, err)
	require.Len(t, listResp.Captures, 1)
	assert.Equal(t, createResp.Device.Chips[0].Id, listResp.Captures[0].ChipId)
}
