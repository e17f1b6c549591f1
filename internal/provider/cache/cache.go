package cache

import (
    "sync"
    "time"
)

// entry stores one cached value with the time it was fetched.
type entry[V any] struct {
    value     V
    fetchedAt time.Time
}

// Store is a TTL cache keyed by string. Entries are never evicted; a stale
// entry stays readable through Stale until it is overwritten by Set.
// Concurrent writers race with last-writer-wins semantics.
type Store[V any] struct {
    TTL time.Duration
    // Now is the clock used for freshness checks; nil means time.Now.
    Now func() time.Time

    mu    sync.RWMutex
    items map[string]entry[V]
}

// New returns a Store with the given TTL and clock.
func New[V any](ttl time.Duration, now func() time.Time) *Store[V] {
    return &Store[V]{TTL: ttl, Now: now, items: make(map[string]entry[V])}
}

func (s *Store[V]) now() time.Time {
    if s.Now != nil {
        return s.Now()
    }
    return time.Now()
}

// Get returns the value for key if it is younger than TTL.
// A non-positive TTL disables freshness: Get always misses.
func (s *Store[V]) Get(key string) (V, bool) {
    var zero V
    if s.TTL <= 0 {
        return zero, false
    }
    s.mu.RLock()
    e, ok := s.items[key]
    s.mu.RUnlock()
    if !ok || s.now().Sub(e.fetchedAt) >= s.TTL {
        return zero, false
    }
    return e.value, true
}

// Stale returns the most recent value for key regardless of age.
func (s *Store[V]) Stale(key string) (V, bool) {
    s.mu.RLock()
    e, ok := s.items[key]
    s.mu.RUnlock()
    return e.value, ok
}

// FetchedAt reports when key was last stored.
func (s *Store[V]) FetchedAt(key string) (time.Time, bool) {
    s.mu.RLock()
    e, ok := s.items[key]
    s.mu.RUnlock()
    return e.fetchedAt, ok
}

// Set stores value under key, stamped with the current clock.
func (s *Store[V]) Set(key string, value V) {
    e := entry[V]{value: value, fetchedAt: s.now()}
    s.mu.Lock()
    if s.items == nil {
        s.items = make(map[string]entry[V])
    }
    s.items[key] = e
    s.mu.Unlock()
}

// Len returns the number of keys ever stored.
func (s *Store[V]) Len() int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return len(s.items)
}
