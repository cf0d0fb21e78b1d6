package state

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	return m.snap.Clone(), nil
}

// Save replaces the stored snapshot with a copy of snap.
func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	c := snap.Clone()
	m.mu.Lock()
	m.snap = &c
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
