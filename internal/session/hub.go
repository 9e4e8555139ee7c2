package session

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrUnknownClient is returned by SendTo when no connection is bound to the id.
var ErrUnknownClient = errors.New("session: unknown client")

// Handle lets the hub reach one registered connection.
type Handle struct {
	Cancel func()
	Send   func(payload []byte) error
}

// Hub is a table of live connections keyed by id. At most one connection is
// bound to an id; registering again silently replaces and cancels the
// previous one.
type Hub struct {
	mu      sync.Mutex
	entries map[string]*hubEntry
	wg      sync.WaitGroup
}

type hubEntry struct {
	handle Handle
	once   sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{entries: make(map[string]*hubEntry)}
}

// Register binds id to h and returns the function that releases it.
func (h *Hub) Register(id string, handle Handle) (unregister func()) {
	entry := &hubEntry{handle: handle}

	h.mu.Lock()
	old := h.entries[id]
	h.entries[id] = entry
	h.wg.Add(1)
	h.mu.Unlock()

	// The replaced connection keeps its Wait slot until its own release.
	if old != nil && old.handle.Cancel != nil {
		old.handle.Cancel()
	}

	return func() { h.unregister(id, entry) }
}

func (h *Hub) unregister(id string, entry *hubEntry) {
	entry.once.Do(func() {
		h.mu.Lock()
		if h.entries[id] == entry {
			delete(h.entries, id)
		}
		h.mu.Unlock()
		h.wg.Done()
	})
}

// SendTo delivers payload to one connection.
func (h *Hub) SendTo(id string, payload []byte) error {
	h.mu.Lock()
	entry := h.entries[id]
	h.mu.Unlock()

	if entry == nil || entry.handle.Send == nil {
		return ErrUnknownClient
	}
	return entry.handle.Send(payload)
}

// Broadcast delivers payload to every connection and reports how many
// accepted it.
func (h *Hub) Broadcast(payload []byte) (sent int) {
	var sends []func([]byte) error
	h.mu.Lock()
	for _, entry := range h.entries {
		if entry.handle.Send != nil {
			sends = append(sends, entry.handle.Send)
		}
	}
	h.mu.Unlock()

	for _, send := range sends {
		if send(payload) == nil {
			sent++
		}
	}
	return sent
}

// IDs returns the bound ids in sorted order.
func (h *Hub) IDs() []string {
	h.mu.Lock()
	ids := make([]string, 0, len(h.entries))
	for id := range h.entries {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Count returns the number of bound connections.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// CancelAll cancels every bound connection.
func (h *Hub) CancelAll() (canceled int) {
	var cancels []func()
	h.mu.Lock()
	for _, entry := range h.entries {
		if entry.handle.Cancel != nil {
			cancels = append(cancels, entry.handle.Cancel)
		}
	}
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
		canceled++
	}
	return canceled
}

// Wait blocks until every registration has been released or ctx is done.
func (h *Hub) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
