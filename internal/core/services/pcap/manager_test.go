package pcap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/netsim/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterEnableWriteStream(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, 1, "emu-a", domain.ChipKindWifi))
	require.NoError(t, m.SetState(ctx, 1, domain.CaptureOn))

	for i := 0; i < 3; i++ {
		require.NoError(t, m.WriteFrame(ctx, 1, []byte("frame-payload")))
	}

	cap, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cap.Records)
	assert.Equal(t, int64((pcapRecordHeaderSize+len("frame-payload"))*3), cap.Size)

	require.NoError(t, m.SetState(ctx, 1, domain.CaptureOff))

	var buf bytes.Buffer
	require.NoError(t, m.Stream(ctx, 1, &buf))
	assert.Equal(t, buf.Len(), int(cap.Size)+pcapFileHeaderSize)
}

// pcapFileHeaderSize is pcapgo's global header: magic, version, timezone,
// sigfigs, snaplen, linktype, 4 bytes each.
const pcapFileHeaderSize = 24

func TestWriteFrameNoopWithoutCaptureEnabled(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, 1, "emu-a", domain.ChipKindUwb))
	require.NoError(t, m.WriteFrame(ctx, 1, []byte("ignored")))

	cap, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cap.Records)
}

func TestUnregisterRemovesFile(t *testing.T) {
	dir := t.TempDir()
	m, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, 1, "emu-a", domain.ChipKindWifi))
	require.NoError(t, m.SetState(ctx, 1, domain.CaptureOn))
	require.NoError(t, m.Unregister(ctx, 1))

	_, err = m.Get(ctx, 1)
	assert.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, statErr := os.Stat(filepath.Join(dir, "1-emu-a-Wifi.pcap"))
	assert.True(t, os.IsNotExist(statErr))
}
