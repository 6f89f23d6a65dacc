package outwriter

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/qualitytrend/sonarscrape/internal/contract"
	"github.com/qualitytrend/sonarscrape/schema"
)

// MemoryStore keeps encoded tables in memory. It uses the same encoding as
// FileStore so values read back look exactly like values read from disk.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ contract.TableStore = &MemoryStore{} // Compile-time check

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

// WriteTable stores the encoded table under name.
func (m *MemoryStore) WriteTable(name string, table schema.Table) (string, error) {
	data, err := EncodeTable(table)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", name, err)
	}
	m.put(name, data)
	return name, nil
}

// WriteLines stores lines under name.
func (m *MemoryStore) WriteLines(name string, lines []string) (string, error) {
	m.put(name, EncodeLines(lines))
	return name, nil
}

// ReadTable decodes the table stored under name.
func (m *MemoryStore) ReadTable(name string) (schema.Table, error) {
	data, err := m.get(name)
	if err != nil {
		return schema.Table{}, err
	}
	return DecodeTable(data)
}

// ReadLines decodes the lines stored under name.
func (m *MemoryStore) ReadLines(name string) ([]string, error) {
	data, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return DecodeLines(data), nil
}

// Content returns the raw bytes stored under name.
func (m *MemoryStore) Content(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	return string(data), ok
}

// Names returns the stored names in sorted order.
func (m *MemoryStore) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (m *MemoryStore) put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
}

func (m *MemoryStore) get(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", name, os.ErrNotExist)
	}
	return data, nil
}
