package cache

import (
	"sync"
	"time"
)

// Store is a mutex-guarded in-memory TTL cache. Reads use lazy expiry:
// an entry at or past the TTL is treated as absent. SweepExpired exists
// for explicit memory bounding; no background sweeper runs.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
}

// NewStore creates a store with the given TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
	}
}

// TTL returns the store's configured time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the cached value for key if a fresh entry exists.
// A stale entry is removed and reported as a miss.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok {
		Misses.Inc()
		return nil, false
	}
	if !entry.Fresh(s.ttl) {
		delete(s.entries, key.String())
		Entries.Dec()
		Evictions.WithLabelValues("expired").Inc()
		Misses.Inc()
		return nil, false
	}

	Hits.Inc()
	return entry.Value, true
}

// Put stores a value, overwriting any existing entry for the key.
// Last writer wins on concurrent puts for the same key.
func (s *Store) Put(key Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key.String()]; !exists {
		Entries.Inc()
	}
	s.entries[key.String()] = &Entry{
		Value:    value,
		Model:    key.Model,
		Method:   key.Method,
		StoredAt: time.Now(),
	}
}

// Invalidate removes matching entries. Empty model clears everything;
// empty method clears all entries for the model. Returns the number of
// entries removed.
func (s *Store) Invalidate(model, method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if model != "" && entry.Model != model {
			continue
		}
		if method != "" && entry.Method != method {
			continue
		}
		delete(s.entries, key)
		removed++
	}
	if removed > 0 {
		Entries.Sub(float64(removed))
		Evictions.WithLabelValues("invalidated").Add(float64(removed))
	}
	return removed
}

// SweepExpired removes entries older than maxAge. A non-positive maxAge
// uses the store's TTL. Safe to call concurrently with Get/Put. Returns
// the number of entries removed.
func (s *Store) SweepExpired(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if entry.Age() >= maxAge {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 {
		Entries.Sub(float64(removed))
		Evictions.WithLabelValues("expired").Add(float64(removed))
	}
	return removed
}

// Len returns the number of entries currently held, fresh or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
