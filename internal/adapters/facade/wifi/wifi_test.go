package wifi

import (
	"context"
	"testing"

	"github.com/google/netsim/internal/adapters/codec/arp"
	"github.com/google/netsim/internal/adapters/codec/dot11"
	"github.com/google/netsim/internal/adapters/codec/llcsnap"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/services/pcap"
	"github.com/google/netsim/internal/core/services/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	received [][]byte
}

func (s *fakeSink) Send(chipId uint32, payload []byte) error {
	s.received = append(s.received, payload)
	return nil
}

func setupTwoStations(t *testing.T) (*scene.Store, *Facade, uint32, uint32) {
	t.Helper()
	store := scene.New()
	pm, err := pcap.New(t.TempDir())
	require.NoError(t, err)
	f := New(store, pm)
	ctx := context.Background()

	devA, err := store.CreateDevice(ctx, domain.DeviceCreate{Name: "a", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}})
	require.NoError(t, err)
	devB, err := store.CreateDevice(ctx, domain.DeviceCreate{Name: "b", Chips: []domain.ChipCreate{{Kind: domain.ChipKindWifi}}})
	require.NoError(t, err)

	chipA, chipB := devA.ChipIds[0], devB.ChipIds[0]
	require.NoError(t, pm.Register(ctx, chipA, "a", domain.ChipKindWifi))
	require.NoError(t, pm.Register(ctx, chipB, "b", domain.ChipKindWifi))

	_, err = f.Add(ctx, domain.Chip{Id: chipA}, "a")
	require.NoError(t, err)
	_, err = f.Add(ctx, domain.Chip{Id: chipB}, "b")
	require.NoError(t, err)

	return store, f, chipA, chipB
}

func TestAddAssignsAndRemoveReleasesStationAddress(t *testing.T) {
	_, f, chipA, _ := setupTwoStations(t)
	ctx := context.Background()

	st, ok := f.byChip[chipA]
	require.True(t, ok)
	addr := st.address.String()
	_, ok = f.byHwAddr[addr]
	require.True(t, ok)

	require.NoError(t, f.Remove(ctx, chipA))
	_, ok = f.byChip[chipA]
	assert.False(t, ok)
	_, ok = f.byHwAddr[addr]
	assert.False(t, ok)
}

func TestDeliverToRoutesWithinRange(t *testing.T) {
	store, f, chipA, chipB := setupTwoStations(t)
	ctx := context.Background()

	sinkB := &fakeSink{}
	f.RegisterSink(chipB, sinkB)

	close := domain.Position{X: 1}
	require.NoError(t, store.PatchDevice(ctx, "b", domain.PatchFields{Position: &close}))

	stB := f.byChip[chipB]
	require.NoError(t, f.deliverTo(ctx, chipA, stB.address, []byte("mpdu")))
	require.Len(t, sinkB.received, 1)
}

func TestDeliverToDropsOutOfRange(t *testing.T) {
	store, f, chipA, chipB := setupTwoStations(t)
	ctx := context.Background()

	sinkB := &fakeSink{}
	f.RegisterSink(chipB, sinkB)

	far := domain.Position{X: 100000}
	require.NoError(t, store.PatchDevice(ctx, "b", domain.PatchFields{Position: &far}))

	stB := f.byChip[chipB]
	require.NoError(t, f.deliverTo(ctx, chipA, stB.address, []byte("mpdu")))
	assert.Empty(t, sinkB.received)
}

func TestDeliverToNoRouteWhenReceiverUnknown(t *testing.T) {
	_, f, chipA, _ := setupTwoStations(t)
	ctx := context.Background()

	require.NoError(t, f.deliverTo(ctx, chipA, stationAddress(9999), []byte("mpdu")))
}

func TestTryHandleArpAnswersRequestForGateway(t *testing.T) {
	_, f, _, _ := setupTwoStations(t)

	stationHW := stationAddress(1)
	req := arp.Packet{
		Operation:   1,
		SenderHW:    stationHW,
		SenderProto: []byte{192, 168, 49, 50},
		TargetHW:    gatewayMAC,
		TargetProto: gatewayIP,
	}
	encoded, err := arp.Encode(req)
	require.NoError(t, err)

	llc, err := llcsnap.Encode(llcsnap.Frame{DSAP: 0xAA, SSAP: 0xAA, Control: 0x03, EtherType: 0x0806, Payload: encoded})
	require.NoError(t, err)

	reply, handled := f.tryHandleArp(dot11.Frame{Payload: llc})
	require.True(t, handled)
	require.NotEmpty(t, reply)

	decoded, err := arp.Decode(reply)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), decoded.Operation)
	assert.Equal(t, gatewayIP.To4().String(), decoded.SenderProto.String())
}

func TestTryHandleArpIgnoresNonArpTraffic(t *testing.T) {
	_, f, _, _ := setupTwoStations(t)

	llc, err := llcsnap.Encode(llcsnap.Frame{EtherType: 0x0800, Payload: []byte("ip-packet")})
	require.NoError(t, err)

	_, handled := f.tryHandleArp(dot11.Frame{Payload: llc})
	assert.False(t, handled)
}
