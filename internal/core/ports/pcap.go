package ports

import (
	"context"
	"io"

	"github.com/google/netsim/internal/core/domain"
)

// PcapManager owns each chip's capture file lifecycle (spec.md §4.3).
type PcapManager interface {
	// SetState enables or disables capture for a chip. Enabling
	// truncate-or-creates the backing file; disabling closes the writer
	// but keeps the file until the next enable.
	SetState(ctx context.Context, chipId uint32, state domain.CaptureState) error
	// WriteFrame appends one frame if capture is enabled for chipId; a
	// no-op otherwise.
	WriteFrame(ctx context.Context, chipId uint32, payload []byte) error
	// List returns the Capture view for every registered chip, whether or
	// not capture has ever been enabled for it.
	List(ctx context.Context) []domain.Capture
	// Get returns the Capture view for a single chip.
	Get(ctx context.Context, chipId uint32) (domain.Capture, error)
	// Stream writes the chip's pcap file to w in ≤1024-byte chunks while
	// holding a read lock that blocks a concurrent truncation.
	Stream(ctx context.Context, chipId uint32, w io.Writer) error
	// Register creates an (initially disabled) capture entry for a newly
	// attached chip, choosing a linktype from its kind.
	Register(ctx context.Context, chipId uint32, deviceName string, kind domain.ChipKind) error
	// Unregister removes a chip's capture entry and deletes its file.
	Unregister(ctx context.Context, chipId uint32) error
}
