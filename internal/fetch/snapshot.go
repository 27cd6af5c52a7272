package fetch

import (
	"sync"
	"time"
)

// Snapshot holds the last complete collection. Writers replace the slice,
// they never mutate it, so readers always see a fully-formed collection.
type Snapshot[T any] struct {
	mu        sync.RWMutex
	items     []T
	fetchedAt time.Time
	version   uint64
}

// Replace swaps in a new collection.
func (s *Snapshot[T]) Replace(items []T, at time.Time) {
	cp := make([]T, len(items))
	copy(cp, items)

	s.mu.Lock()
	s.items = cp
	s.fetchedAt = at
	s.version++
	s.mu.Unlock()
}

// Load returns the current collection, its fetch time and version.
// The version is 0 until the first successful fetch.
func (s *Snapshot[T]) Load() ([]T, time.Time, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items, s.fetchedAt, s.version
}
