package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store. It is used by tests and by commands
// that do not need persistence.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailWith, when set, is returned by every operation.
	FailWith error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage)
	if len(keys) == 0 {
		for k, v := range m.data {
			out[k] = clone(v)
		}
		return out, nil
	}
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = clone(v)
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, items map[string]json.RawMessage) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range items {
		m.data[k] = clone(v)
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	m.data = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) BytesInUse(ctx context.Context) (int64, error) {
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for k, v := range m.data {
		n += int64(len(k) + len(v))
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
