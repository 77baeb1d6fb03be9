// Package toast keeps the short-lived notifications shown to a console client.
package toast

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind is the visual category of a toast.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// DefaultTTL is how long a toast stays before automatic removal.
const DefaultTTL = 4000 * time.Millisecond

// Toast is one notification.
type Toast struct {
	ID      uint64 `json:"id"`
	Message string `json:"message"`
	Kind    Kind   `json:"type"`
}

// nextID is shared by every notifier so ids stay unique across clients.
var nextID atomic.Uint64

// Timer is a pending removal that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Observer is told about every added toast. Used for metrics.
type Observer func(kind Kind)

// Notifier holds the toasts of one client in insertion order.
type Notifier struct {
	ttl       time.Duration
	afterFunc AfterFunc
	observe   Observer

	mu     sync.Mutex
	toasts []Toast
	timers map[uint64]Timer
}

// NewNotifier returns an empty Notifier. ttl <= 0 uses DefaultTTL.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl, afterFunc: realAfterFunc, timers: make(map[uint64]Timer)}
}

// Add appends a toast and schedules its removal. An empty kind is Info. Identical messages are not merged.
func (n *Notifier) Add(message string, kind Kind) Toast {
	if kind == "" {
		kind = Info
	}
	t := Toast{ID: nextID.Add(1), Message: message, Kind: kind}

	n.mu.Lock()
	n.toasts = append(n.toasts, t)
	n.timers[t.ID] = n.afterFunc(n.ttl, func() { n.expire(t.ID) })
	n.mu.Unlock()

	if n.observe != nil {
		n.observe(kind)
	}
	return t
}

// Success adds a success toast.
func (n *Notifier) Success(message string) Toast { return n.Add(message, Success) }

// Error adds an error toast.
func (n *Notifier) Error(message string) Toast { return n.Add(message, Error) }

// Info adds an info toast.
func (n *Notifier) Info(message string) Toast { return n.Add(message, Info) }

// Remove drops the toast with id and cancels its timer. Unknown ids are ignored.
func (n *Notifier) Remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	n.removeLocked(id)
}

func (n *Notifier) expire(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.timers, id)
	n.removeLocked(id)
}

func (n *Notifier) removeLocked(id uint64) {
	for i, t := range n.toasts {
		if t.ID == id {
			n.toasts = append(n.toasts[:i:i], n.toasts[i+1:]...)
			return
		}
	}
}

// List returns the current toasts, oldest first.
func (n *Notifier) List() []Toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Toast, len(n.toasts))
	copy(out, n.toasts)
	return out
}

// Len returns the number of current toasts.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.toasts)
}
