// Package pcap implements C3: per-chip capture files in libpcap format,
// grounded on the teacher's HandshakeManager pcap writer
// (internal/adapters/sniffer/handshake/handshake_manager.go), generalized
// from a WPA-handshake-triggered one-shot writer to a toggleable,
// per-chip, continuously-appending one.
package pcap

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/ports"
	"github.com/google/netsim/internal/telemetry"
)

const maxChunk = 1024

// pcapRecordHeaderSize is the per-record header pcapgo.Writer.WritePacket
// writes before the payload (ts_sec, ts_usec, incl_len, orig_len; 4 bytes
// each), so capture_size reflects actual on-disk bytes rather than just
// the payloads.
const pcapRecordHeaderSize = 16

type entry struct {
	mu         sync.RWMutex
	chipId     uint32
	deviceName string
	kind       domain.ChipKind
	path       string
	state      domain.CaptureState
	size       int64
	records    int64
	firstTs    int64
	f          *os.File
	w          *pcapgo.Writer
	disabled   bool // set after a write failure; never re-enabled automatically
}

// Manager implements ports.PcapManager.
type Manager struct {
	dir string

	mu      sync.Mutex
	entries map[uint32]*entry
}

// New returns a Manager that writes capture files under dir, deleting any
// pcap files left over from a previous run (spec.md §4.3: "At startup, any
// pcap file left in the scratch directory from a previous run is
// deleted.").
func New(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.Wrap(domain.KindIoError, err, "create pcap directory %s", dir)
	}
	if err := clearStaleCaptures(dir); err != nil {
		return nil, err
	}
	return &Manager{dir: dir, entries: make(map[uint32]*entry)}, nil
}

func clearStaleCaptures(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pcap"))
	if err != nil {
		return domain.Wrap(domain.KindIoError, err, "glob stale captures in %s", dir)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			log.Printf("pcap: failed to remove stale capture %s: %v", m, err)
		}
	}
	return nil
}

var _ ports.PcapManager = (*Manager)(nil)

func linkTypeFor(kind domain.ChipKind) layers.LinkType {
	switch kind {
	case domain.ChipKindWifi:
		return layers.LinkTypeIEEE80211Radio
	case domain.ChipKindUwb:
		return layers.LinkType(147) // DLT_USER0, per spec.md §4.3
	default:
		return layers.LinkType(201) // DLT_BLUETOOTH_HCI_H4_WITH_PHDR
	}
}

func filenameFor(chipId uint32, deviceName string, kind domain.ChipKind) string {
	return fmt.Sprintf("%d-%s-%s.pcap", chipId, deviceName, kind)
}

// Register creates a disabled capture entry for a newly attached chip.
func (m *Manager) Register(ctx context.Context, chipId uint32, deviceName string, kind domain.ChipKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[chipId] = &entry{
		chipId:     chipId,
		deviceName: deviceName,
		kind:       kind,
		path:       filepath.Join(m.dir, filenameFor(chipId, deviceName, kind)),
	}
	return nil
}

// Unregister removes a chip's capture entry and its backing file.
func (m *Manager) Unregister(ctx context.Context, chipId uint32) error {
	m.mu.Lock()
	e, ok := m.entries[chipId]
	delete(m.entries, chipId)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.f != nil {
		e.f.Close()
	}
	os.Remove(e.path)
	return nil
}

func (m *Manager) get(chipId uint32) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[chipId]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "no capture registered for chip %d", chipId)
	}
	return e, nil
}

// SetState enables or disables capture on a chip's entry.
func (m *Manager) SetState(ctx context.Context, chipId uint32, state domain.CaptureState) error {
	e, err := m.get(chipId)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if state == domain.CaptureOn {
		if e.f != nil {
			e.f.Close()
		}
		f, err := os.Create(e.path) // truncate-or-create
		if err != nil {
			telemetry.CaptureErrors.WithLabelValues(e.kind.String()).Inc()
			return domain.Wrap(domain.KindIoError, err, "create capture file for chip %d", chipId)
		}
		w := pcapgo.NewWriter(f)
		if err := w.WriteFileHeader(65536, linkTypeFor(e.kind)); err != nil {
			f.Close()
			telemetry.CaptureErrors.WithLabelValues(e.kind.String()).Inc()
			return domain.Wrap(domain.KindIoError, err, "write pcap header for chip %d", chipId)
		}
		e.f = f
		e.w = w
		e.size = 0
		e.records = 0
		e.firstTs = 0
		e.disabled = false
	} else if e.f != nil {
		e.f.Close()
		e.f = nil
		e.w = nil
	}
	e.state = state
	return nil
}

// WriteFrame appends a frame if the chip's capture is enabled.
func (m *Manager) WriteFrame(ctx context.Context, chipId uint32, payload []byte) error {
	e, err := m.get(chipId)
	if err != nil {
		return nil // no capture registered for this chip yet; not an error
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != domain.CaptureOn || e.disabled || e.w == nil {
		return nil
	}

	now := time.Now()
	ci := gopacket.CaptureInfo{Timestamp: now, CaptureLength: len(payload), Length: len(payload)}
	if err := e.w.WritePacket(ci, payload); err != nil {
		e.disabled = true
		telemetry.CaptureErrors.WithLabelValues(e.kind.String()).Inc()
		log.Printf("pcap: write failed for chip %d, disabling capture: %v", chipId, err)
		return domain.Wrap(domain.KindIoError, err, "write capture record for chip %d", chipId)
	}
	if e.records == 0 {
		e.firstTs = now.UnixNano()
	}
	e.records++
	e.size += pcapRecordHeaderSize + int64(len(payload))
	telemetry.CaptureBytesWritten.WithLabelValues(e.kind.String()).Add(float64(pcapRecordHeaderSize + len(payload)))
	return nil
}

func (e *entry) toCapture() domain.Capture {
	return domain.Capture{
		Id:         e.chipId,
		ChipId:     e.chipId,
		DeviceName: e.deviceName,
		ChipKind:   e.kind,
		State:      e.state,
		Size:       e.size,
		Records:    e.records,
		Timestamp:  e.firstTs,
		Filename:   filepath.Base(e.path),
	}
}

// List returns the Capture view for every registered chip.
func (m *Manager) List(ctx context.Context) []domain.Capture {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	out := make([]domain.Capture, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		out = append(out, e.toCapture())
		e.mu.RUnlock()
	}
	return out
}

// Get returns the Capture view for a single chip.
func (m *Manager) Get(ctx context.Context, chipId uint32) (domain.Capture, error) {
	e, err := m.get(chipId)
	if err != nil {
		return domain.Capture{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.toCapture(), nil
}

// Stream writes the chip's pcap file to w in ≤1024-byte chunks while
// holding a read lock that blocks a concurrent SetState truncation.
func (m *Manager) Stream(ctx context.Context, chipId uint32, w io.Writer) error {
	e, err := m.get(chipId)
	if err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.f != nil {
		if err := e.f.Sync(); err != nil {
			return domain.Wrap(domain.KindIoError, err, "sync capture file for chip %d", chipId)
		}
	}

	f, err := os.Open(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewError(domain.KindNotFound, "no capture data recorded yet for chip %d", chipId)
		}
		return domain.Wrap(domain.KindIoError, err, "open capture file for chip %d", chipId)
	}
	defer f.Close()

	buf := make([]byte, maxChunk)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return domain.Wrap(domain.KindIoError, writeErr, "stream capture for chip %d", chipId)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return domain.Wrap(domain.KindIoError, readErr, "read capture file for chip %d", chipId)
		}
	}
}
