package ports

import (
	"context"

	"github.com/google/netsim/internal/core/domain"
)

// Facade is the small capability set every radio-kind dispatcher
// implements, per spec.md §9: "Facades share a small capability set
// ({add, remove, reset, patch, get, handle_request}); concrete types
// differ in state."
type Facade interface {
	// Add registers a newly attached chip with the facade and returns a
	// facade-local handle (opaque to callers, stable for the chip's
	// lifetime).
	Add(ctx context.Context, chip domain.Chip, deviceName string) (facadeId uint32, err error)
	// Remove releases a chip's facade-private state.
	Remove(ctx context.Context, facadeId uint32) error
	// Reset zeroes a chip's facade-private counters/state without
	// releasing its handle.
	Reset(ctx context.Context, facadeId uint32) error
	// Patch applies a radio-level change (state, range) pushed from the
	// scene store.
	Patch(ctx context.Context, facadeId uint32, radio domain.Radio) error
	// Get reads back a facade's view of a chip's radio.
	Get(ctx context.Context, facadeId uint32) (domain.Radio, error)
	// HandleRequest pushes one inbound frame from chipId's stream into the
	// facade for processing (dispatch, medium simulation, tap to pcap).
	HandleRequest(ctx context.Context, chipId uint32, payload []byte) error
	// RegisterSink binds a chip's outbound stream so the facade can deliver
	// frames it receives for that chip.
	RegisterSink(chipId uint32, sink ResponseSink)
}

// ResponseSink is how a facade delivers a frame back out to a chip's
// stream; transports implement this and register one per attached chip.
type ResponseSink interface {
	// Send delivers payload to the chip's outbound stream. Implementations
	// must never block the facade: a full outbound queue drops the oldest
	// queued frame and counts it (spec.md §5).
	Send(chipId uint32, payload []byte) error
}
