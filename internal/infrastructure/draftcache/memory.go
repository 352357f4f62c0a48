package draftcache

import (
	"context"
	"sync"
	"time"

	"stocktake/internal/domain/counting"
)

// MemoryStore keeps drafts in process memory. Used in tests and
// single-node deployments without Redis. Entries do not expire on their
// own; the worker's DeleteStale sweep handles that.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	draft     counting.Draft
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory draft store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Save writes a draft under key with the given TTL.
func (s *MemoryStore) Save(_ context.Context, key string, draft *counting.Draft, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		draft:     *draft,
		expiresAt: time.Now().UTC().Add(ttl),
	}
	return nil
}

// Load reads a draft. Returns nil draft (no error) when absent or expired.
func (s *MemoryStore) Load(_ context.Context, key string) (*counting.Draft, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || time.Now().UTC().After(entry.expiresAt) {
		return nil, nil
	}

	draft := entry.draft
	return &draft, nil
}

// Delete removes a draft. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// DeleteStale removes expired drafts and returns how many were dropped.
func (s *MemoryStore) DeleteStale(_ context.Context) (int, error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}

	return removed, nil
}

var _ counting.DraftStore = (*MemoryStore)(nil)
