// Package infra provides shared infrastructure components used across
// the application: fetch-timestamped caching and outbound rate limiting.
package infra

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// --- Fetch-timestamped cache ---

// CacheEntry holds a cached value together with the time it was fetched.
// Freshness is decided by the reader, not at write time.
type CacheEntry[V any] struct {
	Value     V
	FetchedAt time.Time
}

// Fresh reports whether the entry is younger than ttl at the given instant.
func (e CacheEntry[V]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Store is a thread-safe map of cache entries. Entries are never evicted in
// the background; a newer entry for a key fully replaces the older one.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry[V]
	now     func() time.Time
}

// NewStore creates an empty store using the wall clock.
func NewStore[V any]() *Store[V] {
	return NewStoreWithClock[V](time.Now)
}

// NewStoreWithClock creates an empty store that reads time from now.
func NewStoreWithClock[V any](now func() time.Time) *Store[V] {
	if now == nil {
		now = time.Now
	}
	return &Store[V]{
		entries: make(map[string]CacheEntry[V]),
		now:     now,
	}
}

// Now returns the store's current time.
func (s *Store[V]) Now() time.Time { return s.now() }

// Get returns the entry for key, fresh or not.
func (s *Store[V]) Get(key string) (CacheEntry[V], bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	return entry, ok
}

// GetFresh returns the value for key if its entry is younger than ttl.
func (s *Store[V]) GetFresh(key string, ttl time.Duration) (V, bool) {
	entry, ok := s.Get(key)
	if !ok || !entry.Fresh(s.now(), ttl) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Put replaces the entry for key with value stamped at the current time.
func (s *Store[V]) Put(key string, value V) CacheEntry[V] {
	entry := CacheEntry[V]{Value: value, FetchedAt: s.now()}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return entry
}

// Invalidate removes a key from the store.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of stored entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// --- Rate limiter ---

// RateLimiter provides token-bucket rate limiting for outbound requests.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter that allows maxTokens requests
// per window, with bursts of up to maxTokens.
func NewRateLimiter(maxTokens int, window time.Duration) *RateLimiter {
	if maxTokens <= 0 || window <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	every := window / time.Duration(maxTokens)
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(every), maxTokens)}
}

// Wait blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	return rl.limiter.Wait(ctx)
}
