package store

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/cart/domain"
)

// MemoryPersister keeps snapshots in process memory. It backs tests and
// local runs without MongoDB.
type MemoryPersister struct {
	mu    sync.Mutex
	carts map[string][]domain.CartLine
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{carts: make(map[string][]domain.CartLine)}
}

func (m *MemoryPersister) Load(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneLines(m.carts[sessionID]), nil
}

func (m *MemoryPersister) Save(_ context.Context, sessionID string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = cloneLines(lines)
	return nil
}

func (m *MemoryPersister) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}
