// Package report generates an operator-facing session report (devices,
// chips, capture summary, radio counters) as PDF or CSV — a REST
// export alongside the raw device/capture endpoints (SUPPLEMENTED
// FEATURES in SPEC_FULL.md). Grounded on the teacher's
// internal/adapters/reporting PDF exporter and go.mod's
// github.com/jung-kurt/gofpdf dependency.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/google/netsim/internal/core/domain"
	"github.com/jung-kurt/gofpdf"
)

// Snapshot is the data a report is built from: the scene, capture state
// for every chip, and the chips themselves (for their radio counters),
// keyed by chip id.
type Snapshot struct {
	Scene    domain.Scene
	Captures []domain.Capture
	Chips    map[uint32]domain.Chip
}

// PDF renders Snapshot as a single-page PDF session report: a devices
// section followed by a captures section.
func PDF(snap Snapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "netsim session report")
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Devices (%d)", len(snap.Scene.Devices)))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, d := range snap.Scene.Devices {
		pdf.Cell(0, 6, fmt.Sprintf("%s (id=%d, kind=%s, chips=%d)", d.Name, d.Id, d.Kind, len(d.Chips)))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Captures (%d)", len(snap.Captures)))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, c := range snap.Captures {
		pdf.Cell(0, 6, fmt.Sprintf("chip %d (%s): %s, %d bytes, %d records", c.ChipId, c.DeviceName, c.State, c.Size, c.Records))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// CSV renders one row per capture entry: device, chip kind, radio state,
// counters.
func CSV(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"device", "chip_id", "chip_kind", "radio_state", "tx_count", "tx_bytes", "rx_count", "rx_bytes"})

	for _, c := range snap.Captures {
		var radio domain.Radio
		if chip, ok := snap.Chips[c.ChipId]; ok {
			radio = *chip.ActiveRadio()
		}
		_ = w.Write([]string{
			c.DeviceName,
			fmt.Sprintf("%d", c.ChipId),
			c.ChipKind.String(),
			fmt.Sprintf("%v", radio.State),
			fmt.Sprintf("%d", radio.TxCount),
			fmt.Sprintf("%d", radio.TxBytes),
			fmt.Sprintf("%d", radio.RxCount),
			fmt.Sprintf("%d", radio.RxBytes),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
