// Package session holds the authentication state of each console client and keeps it in sync with durable storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"maintenance-manager/console/internal/audit"
	"maintenance-manager/console/internal/session/domain"
	"maintenance-manager/console/internal/session/repository"
	userdomain "maintenance-manager/console/internal/user/domain"
)

// ErrTokenExpired is returned by identity checks when the stored token is a JWT whose exp has passed.
var ErrTokenExpired = errors.New("session token expired")

// ErrNoToken is returned by identity checks when there is no token to check.
var ErrNoToken = errors.New("session has no token")

// IdentityFetcher resolves the user a bearer token belongs to (GET /auth/me).
type IdentityFetcher interface {
	Identity(ctx context.Context, token string) (*userdomain.User, error)
}

// Reader is read-only access to a client's session.
type Reader interface {
	State() domain.State
	Subscribe() (<-chan struct{}, func())
}

// Store is the session of one console client. Mutations are serialised and replace the state as a whole.
type Store struct {
	clientID string
	storage  repository.Storage
	identity IdentityFetcher
	audit    audit.AuditLogger
	nowF     func() time.Time

	startOnce sync.Once
	ready     chan struct{}

	// opMu serialises Login, Logout and the commit step of identity checks.
	opMu sync.Mutex

	mu        sync.RWMutex
	state     domain.State
	gen       uint64 // bumped by Login and Logout; identity results from an older generation are discarded
	checkedAt time.Time
	subs      map[chan struct{}]struct{}

	revalidating atomic.Bool
}

// NewStore returns a pending Store for clientID. Call Start to hydrate it from storage.
// auditLogger may be nil.
func NewStore(clientID string, storage repository.Storage, identity IdentityFetcher, auditLogger audit.AuditLogger) *Store {
	return &Store{
		clientID: clientID,
		storage:  storage,
		identity: identity,
		audit:    auditLogger,
		nowF:     time.Now,
		ready:    make(chan struct{}),
		state:    domain.Pending(),
		subs:     make(map[chan struct{}]struct{}),
	}
}

// ClientID returns the id of the client this store belongs to.
func (s *Store) ClientID() string { return s.clientID }

// State returns a snapshot of the current state.
func (s *Store) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready is closed once startup hydration has resolved.
func (s *Store) Ready() <-chan struct{} { return s.ready }

// Subscribe returns a channel that receives a value after each state transition, and a func to unsubscribe.
// Notifications are coalesced: a slow reader sees at least one value after the latest transition.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Start hydrates the store from storage. Only the first call does any work; later calls return immediately.
// With no stored token the store resolves to logged out without network I/O.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		defer close(s.ready)
		s.hydrate(context.WithoutCancel(ctx))
	})
}

func (s *Store) hydrate(ctx context.Context) {
	gen := s.generation()

	token, ok, err := s.storage.Get(ctx, s.clientID, repository.KeyToken)
	if err != nil {
		log.Printf("session: client %s: read stored token: %v", s.clientID, err)
		s.commitLoggedOut(ctx, gen, false)
		return
	}
	if !ok || token == "" {
		s.commitLoggedOut(ctx, gen, false)
		return
	}

	user, err := s.fetchIdentity(ctx, token)
	if err != nil {
		log.Printf("session: client %s: stored token rejected: %v", s.clientID, err)
		s.commitLoggedOut(ctx, gen, true)
		return
	}
	s.commitUser(ctx, gen, user, token)
}

// Login persists token and user and makes them the current session. No validation is performed.
// On a storage error the state is left unchanged.
func (s *Store) Login(ctx context.Context, token string, user *userdomain.User) error {
	if user == nil {
		return errors.New("session: login requires a user")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.storage.Set(ctx, s.clientID, repository.KeyToken, token); err != nil {
		return fmt.Errorf("session: store token: %w", err)
	}
	if err := s.storage.Set(ctx, s.clientID, repository.KeyUser, string(raw)); err != nil {
		if rmErr := s.storage.Remove(ctx, s.clientID, repository.KeyToken); rmErr != nil {
			log.Printf("session: client %s: roll back token: %v", s.clientID, rmErr)
		}
		return fmt.Errorf("session: store user: %w", err)
	}

	u := *user
	s.mu.Lock()
	s.gen++
	s.state = domain.State{User: &u, Token: token}
	s.checkedAt = s.nowF()
	s.mu.Unlock()
	s.notify()
	return nil
}

// Logout clears stored credentials and resolves the session to logged out. It is idempotent.
// Storage errors are logged; the in-memory state is always cleared.
func (s *Store) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.logoutLocked(ctx)
}

func (s *Store) logoutLocked(ctx context.Context) {
	if err := s.storage.Remove(ctx, s.clientID, repository.KeyToken, repository.KeyUser); err != nil {
		log.Printf("session: client %s: clear storage: %v", s.clientID, err)
	}
	s.mu.Lock()
	s.gen++
	s.state = domain.LoggedOut()
	s.checkedAt = time.Time{}
	s.mu.Unlock()
	s.notify()
}

// RefreshUser re-fetches the current user with the current token. On success the user is replaced and the token kept.
// Any failure logs the client out. If Login or Logout runs while the fetch is in flight, the result is discarded.
func (s *Store) RefreshUser(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	s.mu.RLock()
	token := s.state.Token
	prev := s.state.User
	gen := s.gen
	s.mu.RUnlock()

	user, err := s.fetchIdentity(ctx, token)

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.generation() != gen {
		return
	}
	if err != nil {
		log.Printf("session: client %s: refresh user: %v", s.clientID, err)
		if prev != nil && s.audit != nil {
			s.audit.LogEvent(ctx, strconv.FormatInt(prev.CompanyID, 10), strconv.FormatInt(prev.ID, 10), "forced_logout", "session", err.Error())
		}
		s.logoutLocked(ctx)
		return
	}
	s.persistUser(ctx, user)
	s.setResolved(user, token)
}

// NeedsRevalidation reports whether an authenticated session was last confirmed more than interval ago.
// interval <= 0 disables revalidation.
func (s *Store) NeedsRevalidation(interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.state.Authenticated() {
		return false
	}
	return s.nowF().Sub(s.checkedAt) >= interval
}

// Revalidate runs RefreshUser when the session needs revalidation and no other revalidation is in flight.
// It reports whether a refresh ran.
func (s *Store) Revalidate(ctx context.Context, interval time.Duration) bool {
	if !s.NeedsRevalidation(interval) {
		return false
	}
	if !s.revalidating.CompareAndSwap(false, true) {
		return false
	}
	defer s.revalidating.Store(false)
	s.RefreshUser(ctx)
	return true
}

func (s *Store) fetchIdentity(ctx context.Context, token string) (*userdomain.User, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if tokenExpired(token, s.nowF()) {
		return nil, ErrTokenExpired
	}
	user, err := s.identity.Identity(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("identity response has no user")
	}
	return user, nil
}

// tokenExpired reports whether token is a JWT with an exp claim in the past. The signature is not verified;
// tokens that are not JWTs, or have no exp, are left to the API to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.Time.After(now)
}

func (s *Store) commitUser(ctx context.Context, gen uint64, user *userdomain.User, token string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.generation() != gen {
		return
	}
	s.persistUser(ctx, user)
	s.setResolved(user, token)
}

func (s *Store) commitLoggedOut(ctx context.Context, gen uint64, clear bool) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.generation() != gen {
		return
	}
	if clear {
		s.logoutLocked(ctx)
		return
	}
	s.mu.Lock()
	s.state = domain.LoggedOut()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) persistUser(ctx context.Context, user *userdomain.User) {
	raw, err := json.Marshal(user)
	if err != nil {
		log.Printf("session: client %s: encode user: %v", s.clientID, err)
		return
	}
	if err := s.storage.Set(ctx, s.clientID, repository.KeyUser, string(raw)); err != nil {
		log.Printf("session: client %s: store user: %v", s.clientID, err)
	}
}

func (s *Store) setResolved(user *userdomain.User, token string) {
	u := *user
	s.mu.Lock()
	s.state = domain.State{User: &u, Token: token}
	s.checkedAt = s.nowF()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *Store) notify() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
