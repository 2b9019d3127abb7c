// Package outqueue implements the bounded per-stream outbound queue every
// transport ingress uses: backpressure is drop-oldest with a counter, the
// radio side must never block (spec.md §5).
package outqueue

import (
	"sync"

	"github.com/google/netsim/internal/telemetry"
)

const defaultCapacity = 64

// Queue is a single-consumer bounded ring of pending frames.
type Queue struct {
	mu       sync.Mutex
	items    [][]byte
	capacity int
	closed   bool
	wake     chan struct{}
	label    string
}

// New returns a Queue labelled for its drop-counter (e.g. "grpc", "vsock",
// "hci_port").
func New(label string) *Queue {
	return &Queue{capacity: defaultCapacity, wake: make(chan struct{}, 1), label: label}
}

// Push enqueues payload, dropping the oldest queued frame if full.
func (q *Queue) Push(payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		telemetry.FramesDropped.WithLabelValues(q.label, "outqueue_full").Inc()
	}
	q.items = append(q.items, payload)
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop blocks until a frame is available or the queue is closed, returning
// ok=false in the latter case.
func (q *Queue) Pop() (payload []byte, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			payload = q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return payload, true
		}
		if q.closed {
			q.mu.Unlock()
			return nil, false
		}
		q.mu.Unlock()
		<-q.wake
	}
}

// Close unblocks any pending Pop with ok=false.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
