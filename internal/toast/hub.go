package toast

import (
	"context"
	"sync"
	"time"
)

// Hub maps client ids to their Notifier.
type Hub struct {
	ttl     time.Duration
	observe Observer
	nowF    func() time.Time

	mu      sync.Mutex
	clients map[string]*hubEntry
}

type hubEntry struct {
	notifier *Notifier
	lastUsed time.Time
}

// NewHub returns a Hub whose notifiers expire toasts after ttl. observe may be nil.
func NewHub(ttl time.Duration, observe Observer) *Hub {
	return &Hub{ttl: ttl, observe: observe, nowF: time.Now, clients: make(map[string]*hubEntry)}
}

// For returns the Notifier of clientID, creating it on first use, and marks the client as active.
func (h *Hub) For(clientID string) *Notifier {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.clients[clientID]
	if !ok {
		n := NewNotifier(h.ttl)
		n.observe = h.observe
		e = &hubEntry{notifier: n}
		h.clients[clientID] = e
	}
	e.lastUsed = h.nowF()
	return e.notifier
}

// Sweep drops notifiers that hold no toasts and were not handed out for at least idle.
// A notifier still held by a running request is never dropped under it. It returns how many were dropped.
func (h *Hub) Sweep(idle time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.nowF()
	dropped := 0
	for id, e := range h.clients {
		if now.Sub(e.lastUsed) < idle || e.notifier.Len() > 0 {
			continue
		}
		delete(h.clients, id)
		dropped++
	}
	return dropped
}

type contextKey struct{ name string }

var notifierKey = &contextKey{"toast-notifier"}

// WithNotifier returns a copy of ctx carrying n.
func WithNotifier(ctx context.Context, n *Notifier) context.Context {
	return context.WithValue(ctx, notifierKey, n)
}

// FromContext returns the client's Notifier. Without one it returns a detached Notifier so callers never nil-check.
func FromContext(ctx context.Context) *Notifier {
	if n, ok := ctx.Value(notifierKey).(*Notifier); ok && n != nil {
		return n
	}
	return NewNotifier(DefaultTTL)
}
