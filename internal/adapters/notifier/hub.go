// Package notifier implements the payload-free change broadcast that keeps
// connected admin dashboards in sync: announce after every write, let each
// session re-fetch authoritative state.
package notifier

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/poyrazK/licenseHub/internal/infrastructure/metrics"
)

// Hub fans a change signal out to every in-process subscriber. Subscriber
// channels have capacity one, so back-to-back signals coalesce: a session
// that has an undelivered signal pending will refetch once, which is all
// the contract requires.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan struct{})}
}

// Subscribe registers a session and returns its signal channel. The caller
// must Unsubscribe with the returned id when the session ends.
func (h *Hub) Subscribe() (string, <-chan struct{}) {
	id := uuid.New().String()
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a session. Safe to call with an unknown id.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Broadcast delivers one signal to every currently subscribed session.
// Sends never block: a subscriber with a signal already pending keeps the
// pending one.
func (h *Hub) Broadcast() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	metrics.BroadcastSignalsTotal.Inc()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Announce lets a Hub stand in as a ports.Notifier for single-node and
// test wiring, where no cross-instance relay is needed.
func (h *Hub) Announce(ctx context.Context) error {
	h.Broadcast()
	return nil
}

// Len reports the number of subscribed sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
