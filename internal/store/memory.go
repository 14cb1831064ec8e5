package store

import (
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory store for testing and for sessions without a
// database.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]VersionEntry // oldest first
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]VersionEntry),
	}
}

// Get retrieves the latest source of a program.
func (m *Memory) Get(name string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vs := m.data[name]
	if len(vs) == 0 {
		return "", false, nil
	}
	return vs[len(vs)-1].Value, true, nil
}

// Put stores a new version of a program.
func (m *Memory) Put(name, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.data[name]
	if len(vs) > 0 && vs[len(vs)-1].Value == source {
		return nil
	}
	m.data[name] = append(vs, VersionEntry{
		Version: len(vs) + 1,
		Value:   source,
		Ts:      time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// Delete removes a program and all its versions.
func (m *Memory) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

// List returns the program names in order.
func (m *Memory) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data))
	for name := range m.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetHistory returns versions newest first.
func (m *Memory) GetHistory(name string, limit int) ([]VersionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vs := m.data[name]
	if len(vs) == 0 {
		return nil, nil
	}
	out := make([]VersionEntry, 0, len(vs))
	for i := len(vs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, vs[i])
	}
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}
