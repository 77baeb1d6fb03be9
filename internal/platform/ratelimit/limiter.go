// Package ratelimit limits how often a key (e.g. a client IP) may perform an action.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter holds one token bucket per key. Buckets unused for idleTTL are dropped by Sweep.
type KeyedLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	nowF    func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

// PerMinute returns a KeyedLimiter allowing n events per minute per key with the given burst.
func PerMinute(n, burst int) *KeyedLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &KeyedLimiter{
		limit:    rate.Every(time.Minute / time.Duration(n)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		nowF:     time.Now,
		visitors: make(map[string]*visitor),
	}
}

// Allow reports whether key may act now, consuming one token if so.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.nowF()
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle for at least idleTTL and returns how many were dropped.
func (l *KeyedLimiter) Sweep() int {
	now := l.nowF()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idleTTL {
			delete(l.visitors, k)
			n++
		}
	}
	return n
}
