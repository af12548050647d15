package repository

import (
	"context"

	"github.com/fjod/storefront/internal/cart/domain"
)

// CartRepository is the durable home of cart snapshots.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}
