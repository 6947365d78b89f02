package cache

import (
	"context"
	"sync"
	"time"
)

// Store persists response entries by key.
type Store interface {
	// Get returns the entry for key. A miss returns (nil, false, nil).
	Get(ctx context.Context, key string) (*Entry, bool, error)
	// Set stores e under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error
}

type memoryItem struct {
	entry     *Entry
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expiresAt.Equal(it.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return it.entry, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, e *Entry, ttl time.Duration) error {
	it := memoryItem{entry: e}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Purge drops every entry.
func (s *MemoryStore) Purge() {
	s.mu.Lock()
	s.items = make(map[string]memoryItem)
	s.mu.Unlock()
}

var _ Store = (*MemoryStore)(nil)
