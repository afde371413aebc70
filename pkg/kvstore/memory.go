package kvstore

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how many writes may happen between lazy sweeps of
// expired entries.
const sweepInterval = 128

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is an in-process Store with lazy expiry, used in tests and
// single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	writes  int
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the value for key, treating expired entries as missing.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if entry.expired(s.now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.value, true, nil
}

// Put writes value under key with the given ttl and opportunistically sweeps
// expired entries.
func (s *MemoryStore) Put(_ context.Context, key, value string, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expiresAt: expiresAt}
	s.writes++
	if s.writes >= sweepInterval {
		s.writes = 0
		now := s.now()
		for k, e := range s.entries {
			if e.expired(now) {
				delete(s.entries, k)
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// Delete removes the given keys.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, including not-yet-swept expired
// ones.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
