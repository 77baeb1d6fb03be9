// Package latest discards responses to dependent fetches that a newer fetch has superseded.
package latest

import "sync"

// Tracker tags fetches with the key that triggered them and a sequence number.
// Only the most recently begun fetch is current; results of older ones must be dropped.
type Tracker[K comparable] struct {
	mu  sync.Mutex
	seq uint64
	key K
}

// Ticket identifies one fetch.
type Ticket[K comparable] struct {
	t   *Tracker[K]
	seq uint64
	key K
}

// Begin starts a fetch for key, superseding any fetch still in flight.
func (t *Tracker[K]) Begin(key K) Ticket[K] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.key = key
	return Ticket[K]{t: t, seq: t.seq, key: key}
}

// Current reports whether no fetch has begun since this one.
func (tk Ticket[K]) Current() bool {
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	return tk.t.seq == tk.seq && tk.t.key == tk.key
}

// Commit runs apply only if the ticket is still current, holding the tracker lock so no newer fetch
// can begin in between. It reports whether apply ran.
func (tk Ticket[K]) Commit(apply func()) bool {
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	if tk.t.seq != tk.seq || tk.t.key != tk.key {
		return false
	}
	apply()
	return true
}
