// ABOUTME: In-memory credential store for tests and ephemeral sessions
// ABOUTME: Guards the pair with an RWMutex so reads never see a partial write

package credentials

import (
	"context"
	"sync"
)

// MemoryStore keeps the credential pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pair Pair

	saves  int
	clears int
}

// NewMemoryStore creates a MemoryStore seeded with pair.
func NewMemoryStore(pair Pair) *MemoryStore {
	return &MemoryStore{pair: pair}
}

// Load returns the stored pair.
func (m *MemoryStore) Load(_ context.Context) (Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair, nil
}

// Save replaces the stored pair.
func (m *MemoryStore) Save(_ context.Context, pair Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	m.saves++
	return nil
}

// Clear removes both tokens.
func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = Pair{}
	m.clears++
	return nil
}

// Stats returns how many times Save and Clear were called.
func (m *MemoryStore) Stats() (saves, clears int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves, m.clears
}
