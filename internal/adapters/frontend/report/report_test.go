package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/google/netsim/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Scene: domain.Scene{
			Devices: []domain.Device{
				{Id: 1, Name: "pixel-1", Kind: domain.DeviceKindEmulator, ChipIds: []uint32{1}},
			},
		},
		Captures: []domain.Capture{
			{Id: 1, ChipId: 1, DeviceName: "pixel-1", ChipKind: domain.ChipKindWifi, State: domain.CaptureOn, Size: 1024, Records: 7},
		},
		Chips: map[uint32]domain.Chip{
			1: {Id: 1, Kind: domain.ChipKindWifi, Radio: domain.Radio{TxCount: 3, TxBytes: 300, RxCount: 2, RxBytes: 200}},
		},
	}
}

func TestPDFProducesNonEmptyDocument(t *testing.T) {
	data, err := PDF(sampleSnapshot())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestCSVHasHeaderAndOneRowPerCapture(t *testing.T) {
	data, err := CSV(sampleSnapshot())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"device", "chip_id", "chip_kind", "radio_state", "tx_count", "tx_bytes", "rx_count", "rx_bytes"}, rows[0])
	assert.Equal(t, "pixel-1", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, []string{"3", "300", "2", "200"}, rows[1][4:])
}

func TestCSVEmptySnapshotIsHeaderOnly(t *testing.T) {
	data, err := CSV(Snapshot{})
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
