package repository

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStorage is an in-process Storage. Data does not survive a restart; use it for development and tests.
type MemoryStorage struct {
	mu   sync.RWMutex
	m    map[string]map[string]entry
	ttl  time.Duration
	nowF func() time.Time
}

// NewMemoryStorage returns an empty MemoryStorage. ttl <= 0 keeps entries until removed.
func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		m:    make(map[string]map[string]entry),
		ttl:  ttl,
		nowF: time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (s *MemoryStorage) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.m[clientID][key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m[clientID], key)
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key.
func (s *MemoryStorage) Set(ctx context.Context, clientID, key, value string) error {
	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = s.nowF().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.m[clientID]
	if !ok {
		client = make(map[string]entry)
		s.m[clientID] = client
	}
	client[key] = e
	return nil
}

// Remove deletes keys for clientID.
func (s *MemoryStorage) Remove(ctx context.Context, clientID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.m[clientID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(client, k)
	}
	if len(client) == 0 {
		delete(s.m, clientID)
	}
	return nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error { return nil }
