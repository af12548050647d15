// Package store holds the session cart aggregate. A Store merges lines by
// identity key, keeps totals derived from its lines and writes every mutation
// through a Persister before committing it in memory.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/pkg/pricing"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidPrice    = errors.New("unit prices must be non-negative and final must not exceed list")
)

// Persister saves cart snapshots. Consumers define this interface.
// Load returns nil lines and no error for a session with nothing saved.
type Persister interface {
	Load(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	Save(ctx context.Context, sessionID string, lines []domain.CartLine) error
	Delete(ctx context.Context, sessionID string) error
}

// Store is the cart of one session. It is safe for concurrent use, but two
// Stores opened on the same session do not coordinate: the last save wins.
type Store struct {
	mu        sync.Mutex
	sessionID string
	lines     []domain.CartLine
	persister Persister
}

// Open loads the persisted snapshot for sessionID.
func Open(ctx context.Context, sessionID string, p Persister) (*Store, error) {
	lines, err := p.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &Store{
		sessionID: sessionID,
		lines:     cloneLines(lines),
		persister: p,
	}, nil
}

func (s *Store) SessionID() string {
	return s.sessionID
}

// AddItem appends line, or adds its quantity to the line with the same key.
// The prices of an existing line are kept.
func (s *Store) AddItem(ctx context.Context, line domain.CartLine) error {
	if line.Quantity < 1 || line.Quantity > domain.MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if line.UnitListPrice.IsNegative() || line.UnitFinalPrice.IsNegative() ||
		line.UnitFinalPrice.GreaterThan(line.UnitListPrice) {
		return ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cloneLines(s.lines)
	if i := indexOf(next, line.Key()); i >= 0 {
		if next[i].Quantity+line.Quantity > domain.MaxLineQuantity {
			return ErrInvalidQuantity
		}
		next[i].Quantity += line.Quantity
	} else {
		next = append(next, line)
	}
	return s.commit(ctx, next)
}

// RemoveItem drops the line with key. Removing an absent key is a no-op.
func (s *Store) RemoveItem(ctx context.Context, key domain.LineKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.lines, key)
	if i < 0 {
		return nil
	}

	next := make([]domain.CartLine, 0, len(s.lines)-1)
	next = append(next, s.lines[:i]...)
	next = append(next, s.lines[i+1:]...)
	return s.commit(ctx, next)
}

// UpdateQuantity sets the quantity of the line with key. Use RemoveItem to
// drop a line; zero is rejected here.
func (s *Store) UpdateQuantity(ctx context.Context, key domain.LineKey, quantity int) error {
	if quantity < 1 || quantity > domain.MaxLineQuantity {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.lines, key)
	if i < 0 {
		return ErrItemNotFound
	}

	next := cloneLines(s.lines)
	next[i].Quantity = quantity
	return s.commit(ctx, next)
}

// Clear empties the cart and erases its persisted snapshot.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.Delete(ctx, s.sessionID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	s.lines = nil
	return nil
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

func (s *Store) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.ComputeCartTotals(domain.PricingLines(s.lines))
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// commit persists next and then swaps it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []domain.CartLine) error {
	if err := s.persister.Save(ctx, s.sessionID, next); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	s.lines = next
	return nil
}

func indexOf(lines []domain.CartLine, key domain.LineKey) int {
	for i := range lines {
		if lines[i].Key() == key {
			return i
		}
	}
	return -1
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if len(lines) == 0 {
		return nil
	}
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}
