package uwb

import (
	"context"
	"testing"

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

func setupTwoChips(t *testing.T) (*scene.Store, *Facade, uint32, uint32) {
	t.Helper()
	store := scene.New()
	pm, err := pcap.New(t.TempDir())
	require.NoError(t, err)
	f := New(store, pm)
	ctx := context.Background()

	devA, err := store.CreateDevice(ctx, domain.DeviceCreate{Name: "a", Chips: []domain.ChipCreate{{Kind: domain.ChipKindUwb}}})
	require.NoError(t, err)
	devB, err := store.CreateDevice(ctx, domain.DeviceCreate{Name: "b", Chips: []domain.ChipCreate{{Kind: domain.ChipKindUwb}}})
	require.NoError(t, err)

	chipA, chipB := devA.ChipIds[0], devB.ChipIds[0]

	require.NoError(t, pm.Register(ctx, chipA, "a", domain.ChipKindUwb))
	require.NoError(t, pm.Register(ctx, chipB, "b", domain.ChipKindUwb))

	_, err = f.Add(ctx, domain.Chip{Id: chipA}, "a")
	require.NoError(t, err)
	_, err = f.Add(ctx, domain.Chip{Id: chipB}, "b")
	require.NoError(t, err)

	return store, f, chipA, chipB
}

func TestHandleRequestBroadcastsWithinDefaultRange(t *testing.T) {
	store, f, chipA, chipB := setupTwoChips(t)
	ctx := context.Background()

	sinkB := &fakeSink{}
	f.RegisterSink(chipB, sinkB)

	close := domain.Position{X: 1}
	require.NoError(t, store.PatchDevice(ctx, "b", domain.PatchFields{Position: &close}))

	require.NoError(t, f.HandleRequest(ctx, chipA, []byte("ranging-frame")))
	require.Len(t, sinkB.received, 1)
	assert.Equal(t, []byte("ranging-frame"), sinkB.received[0])
}

func TestHandleRequestDropsOutOfRange(t *testing.T) {
	store, f, chipA, chipB := setupTwoChips(t)
	ctx := context.Background()
	sinkB := &fakeSink{}
	f.RegisterSink(chipB, sinkB)

	far := domain.Position{X: 100000}
	require.NoError(t, store.PatchDevice(ctx, "b", domain.PatchFields{Position: &far}))

	require.NoError(t, f.HandleRequest(ctx, chipA, []byte("frame")))
	assert.Empty(t, sinkB.received)
}

func TestHandleRequestDropsWhenRadioOff(t *testing.T) {
	store, f, chipA, chipB := setupTwoChips(t)
	ctx := context.Background()
	sinkB := &fakeSink{}
	f.RegisterSink(chipB, sinkB)

	require.NoError(t, store.PatchChipRadio(ctx, chipA, domain.RadioStateOff))
	require.NoError(t, f.HandleRequest(ctx, chipA, []byte("frame")))
	assert.Empty(t, sinkB.received)
}
