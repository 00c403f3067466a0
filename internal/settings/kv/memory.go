package kv

import (
	"sync"

	"github.com/dshills/italics/internal/settings"
)

// Memory is a process-local settings.Backend. Nothing survives the process.
type Memory struct {
	mu   sync.RWMutex
	data collections
}

var _ settings.Backend = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(collections)}
}

func (m *Memory) CollectionExists(path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.exists(path)
}

func (m *Memory) CreateCollection(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.create(path)
}

func (m *Memory) DeleteCollection(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.delete(path)
}

func (m *Memory) GetString(path, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.get(path, key)
}

func (m *Memory) SetString(path, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.set(path, key, value)
}

func (m *Memory) SetBoolean(path, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.set(path, key, value)
}

func (m *Memory) PropertyNamesAndValues(path string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.properties(path)
}
