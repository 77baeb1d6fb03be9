package session

import (
	"context"
	"log"
	"sync"
	"time"

	"maintenance-manager/console/internal/audit"
	"maintenance-manager/console/internal/session/repository"
)

type managed struct {
	store    *Store
	lastUsed time.Time
}

// Manager maps client ids to their Store. Stores are created and started on first use
// and evicted from memory after idleTTL without use; their stored data is kept.
type Manager struct {
	storage  repository.Storage
	identity IdentityFetcher
	audit    audit.AuditLogger
	idleTTL  time.Duration
	nowF     func() time.Time

	mu     sync.Mutex
	stores map[string]*managed
}

// NewManager returns a Manager. auditLogger may be nil; idleTTL <= 0 disables eviction.
func NewManager(storage repository.Storage, identity IdentityFetcher, auditLogger audit.AuditLogger, idleTTL time.Duration) *Manager {
	return &Manager{
		storage:  storage,
		identity: identity,
		audit:    auditLogger,
		idleTTL:  idleTTL,
		nowF:     time.Now,
		stores:   make(map[string]*managed),
	}
}

// Get returns the Store for clientID, creating it and starting its hydration in the background if needed.
// Concurrent callers for the same client share one Store.
func (m *Manager) Get(clientID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.stores[clientID]; ok {
		e.lastUsed = m.nowF()
		return e.store
	}
	st := NewStore(clientID, m.storage, m.identity, m.audit)
	m.stores[clientID] = &managed{store: st, lastUsed: m.nowF()}
	go st.Start(context.Background())
	return st
}

// Len returns the number of stores held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Sweep evicts stores idle for at least idleTTL that have no subscribers and finished hydration.
// It returns the number evicted.
func (m *Manager) Sweep() int {
	if m.idleTTL <= 0 {
		return 0
	}
	now := m.nowF()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.stores {
		if now.Sub(e.lastUsed) < m.idleTTL || e.store.Subscribers() > 0 {
			continue
		}
		select {
		case <-e.store.Ready():
		default:
			continue
		}
		delete(m.stores, id)
		n++
	}
	return n
}

// Run sweeps idle stores every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				log.Printf("session: evicted %d idle client stores", n)
			}
		}
	}
}
