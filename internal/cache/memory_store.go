package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, ErrMiss
	}
	return append([]byte(nil), e.val...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Has reports whether key holds a live entry.
func (s *MemoryStore) Has(key string) bool {
	_, err := s.Get(context.Background(), key)
	return err == nil
}
