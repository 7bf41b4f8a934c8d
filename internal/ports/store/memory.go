package store

import (
	"context"
	"sort"
	"sync"

	"fillblank/internal/ports"
)

// Memory keeps snapshots in process. Everything is lost on restart.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, code string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[code] = append([]byte(nil), snapshot...)
	return nil
}

func (m *Memory) Load(ctx context.Context, code string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.snapshots[code]
	if !ok {
		return nil, ports.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, code)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := make([]string, 0, len(m.snapshots))
	for code := range m.snapshots {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

var _ ports.SnapshotStore = (*Memory)(nil)
