package cache

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/cart/domain"
)

// CartCache holds short-lived copies of cart snapshots keyed by session.
// Snapshots are versioned by UpdatedAt: a write never replaces a newer
// snapshot or a later delete, so a slow read-through fill cannot resurrect
// an old cart.
type CartCache interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	// Set stores cart unless the cache has seen a newer version.
	Set(ctx context.Context, sessionID string, cart *domain.Cart) error
	// Delete drops the snapshot and records at as the newest version seen.
	Delete(ctx context.Context, sessionID string, at time.Time) error
}

var ErrCacheMiss = errors.New("cache miss")
