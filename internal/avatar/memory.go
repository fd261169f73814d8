package avatar

import (
	"context"
	"sync"
)

// MemoryStore implements Store in memory, for tests and dev runs without Redis
type MemoryStore struct {
	mu      sync.RWMutex
	avatars map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{avatars: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.avatars[userID]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryStore) Set(ctx context.Context, userID string, image []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(image))
	copy(cp, image)
	m.avatars[userID] = cp
	return nil
}
