package stream

import (
	"slices"
	"sync"
)

// Handler receives one broadcast value. A non-nil error stops delivery to the
// handlers registered after it and is returned to the broadcaster's caller.
type Handler[T any] func(v T) error

// HandlerID identifies one registration in a Broadcaster.
type HandlerID uint64

type registration[T any] struct {
	id      HandlerID
	handler Handler[T]
}

// Broadcaster is an ordered registry of handlers invoked synchronously on
// every Broadcast. The same function may be registered more than once and is
// then invoked once per registration. The zero value is ready to use and it is
// safe for concurrent use.
type Broadcaster[T any] struct {
	mu      sync.RWMutex
	nextID  HandlerID
	entries []registration[T]
}

// Add registers h after all existing handlers and returns its registration ID.
func (b *Broadcaster[T]) Add(h Handler[T]) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.entries = append(b.entries, registration[T]{id: b.nextID, handler: h})
	return b.nextID
}

// Remove unregisters the handler with the given ID.
// It returns false if the ID is unknown or was already removed.
func (b *Broadcaster[T]) Remove(id HandlerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := slices.IndexFunc(b.entries, func(r registration[T]) bool { return r.id == id })
	if idx < 0 {
		return false
	}
	b.entries = slices.Delete(b.entries, idx, idx+1)
	return true
}

// Len returns the number of registered handlers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Broadcast delivers v to every handler in registration order on the calling
// goroutine. Handlers registered or removed during delivery take effect on the
// next call.
func (b *Broadcaster[T]) Broadcast(v T) error {
	b.mu.RLock()
	entries := slices.Clone(b.entries)
	b.mu.RUnlock()

	for _, r := range entries {
		if err := r.handler(v); err != nil {
			return err
		}
	}
	return nil
}
