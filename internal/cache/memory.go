package cache

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store. It is the default
// backend and doubles as the test store; Calls exposes per-method invocation
// counts for test verification.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	calls  MemoryCalls
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Get    int
	Set    int
	Delete int
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
	}
}

// Get retrieves the value for key.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound{Key: key}
	}
	return v, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Set++

	m.values[key] = value
	return nil
}

// Delete removes key. Absent keys are a no-op.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++

	delete(m.values, key)
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Keys returns a snapshot of all stored keys.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

// Calls returns a copy of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// ResetCalls zeroes the invocation counters.
func (m *MemoryStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = MemoryCalls{}
}
