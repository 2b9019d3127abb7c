package ports

import "context"

// Stream is the per-connection abstraction shared by the gRPC, vsock, and
// raw HCI TCP ingress paths (spec.md §4.7): a single long-lived
// bidirectional channel multiplexing one chip's frames.
type Stream interface {
	// Recv blocks until the next inbound frame or the stream closes.
	Recv(ctx context.Context) ([]byte, error)
	// Send queues an outbound frame; implementations apply drop-oldest
	// backpressure rather than block the caller.
	Send(payload []byte) error
	// Close tears down the stream and releases its chip's facade entry.
	Close() error
}

// EventBus publishes scene-version changes to subscribers (spec.md §4.9).
// Callbacks run on the publisher's goroutine and must not block.
type EventBus interface {
	Register(callback func()) (token uint64)
	Unregister(token uint64)
	Publish()
}

// AuditLog records scene mutations for the operator-facing activity and
// report views (SUPPLEMENTED FEATURES in SPEC_FULL.md). In-memory only: it
// never persists across process restarts.
type AuditLog interface {
	Record(ctx context.Context, action, detail string) error
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
}

// AuditEntry is one recorded scene mutation.
type AuditEntry struct {
	Id        uint
	Action    string
	Detail    string
	Timestamp int64
}
