package media

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Storage is the object store attachments live in.
type Storage interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	DeleteObjects(ctx context.Context, keys []string) error
	PublicURL(key string) string
	GCSURI(key string) string
}

// MemoryStorage keeps objects in process. Used in tests and when no
// bucket is configured.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	BaseURL string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: map[string][]byte{}, BaseURL: "memory://media"}
}

func (m *MemoryStorage) Upload(ctx context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = bytes.Clone(data)
	return nil
}

func (m *MemoryStorage) DeleteObjects(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.objects, k)
	}
	return nil
}

func (m *MemoryStorage) PublicURL(key string) string { return m.BaseURL + "/" + key }

func (m *MemoryStorage) GCSURI(key string) string { return "" }

// Object returns the stored bytes of key.
func (m *MemoryStorage) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
