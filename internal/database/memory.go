package database

import (
	"context"
	"sync"
)

// MemoryDatabase keeps state for the lifetime of the process only.
type MemoryDatabase struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{values: make(map[string][]byte)}
}

func (m *MemoryDatabase) CreateDatabase() error { return nil }

func (m *MemoryDatabase) DoesDatabaseExist() bool { return true }

func (m *MemoryDatabase) Close() error { return nil }

func (m *MemoryDatabase) GetState(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrStateNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryDatabase) SetState(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}
