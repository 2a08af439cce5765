package server

import "sync"

// hub fans update batches out to connected clients. Each subscriber gets
// its own buffered channel; batches a slow subscriber cannot take are
// dropped, which is safe because batches are idempotent snapshots of
// element state.
type hub struct {
	mu   sync.Mutex
	subs map[chan []EleUpdate]struct{}
	// snapshot holds the latest update per element id so late-joining
	// clients start from current state instead of an empty page.
	snapshot map[string]EleUpdate
}

func newHub() *hub {
	return &hub{
		subs:     map[chan []EleUpdate]struct{}{},
		snapshot: map[string]EleUpdate{},
	}
}

// subscribe registers a new client channel, pre-loaded with the current
// snapshot when one exists.
func (h *hub) subscribe() chan []EleUpdate {
	sub := make(chan []EleUpdate, 1)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	if len(h.snapshot) > 0 {
		batch := make([]EleUpdate, 0, len(h.snapshot))
		for _, update := range h.snapshot {
			batch = append(batch, update)
		}
		sub <- batch
	}
	return sub
}

// unsubscribe removes and closes a client channel.
func (h *hub) unsubscribe(sub chan []EleUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub)
}

// broadcast records the batch in the snapshot and offers it to every
// subscriber without blocking.
func (h *hub) broadcast(batch []EleUpdate) {
	if len(batch) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, update := range batch {
		h.snapshot[update.EleID] = update
	}
	for sub := range h.subs {
		select {
		case sub <- batch:
		default:
		}
	}
}

// forget drops an element's entries from the snapshot, e.g. after unbind.
func (h *hub) forget(eleID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.snapshot, eleID)
}

// count returns the number of connected subscribers.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
