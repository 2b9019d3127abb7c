// Package eventbus implements C9: publication of scene-version changes to
// subscribers (long-poll waiters and the WebSocket /register-updates feed).
package eventbus

import "sync"

// Bus is a registry of non-blocking callbacks invoked on every Publish.
// Grounded on the teacher's RegistrySubject, generalized from a fixed
// DeviceObserver interface to a plain callback so both long-poll waiters
// and WebSocket broadcasters can register without a shared interface.
type Bus struct {
	mu        sync.RWMutex
	nextToken uint64
	callbacks map[uint64]func()
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{callbacks: make(map[uint64]func())}
}

// Register adds callback and returns a token for Unregister.
func (b *Bus) Register(callback func()) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextToken++
	token := b.nextToken
	b.callbacks[token] = callback
	return token
}

// Unregister removes a previously registered callback.
func (b *Bus) Unregister(token uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.callbacks, token)
}

// Publish invokes every registered callback on the caller's goroutine.
// Callbacks must be non-blocking; the teacher's subject spawns a goroutine
// per observer, but our callbacks are themselves just "wake a waiter"
// (close a channel, send on a buffered channel) so running them inline
// keeps Publish's own ordering simple and avoids an unbounded goroutine
// burst on a hot scene.
func (b *Bus) Publish() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, cb := range b.callbacks {
		cb()
	}
}
