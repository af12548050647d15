package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrStatusMismatch          = errors.New("order is not in the expected status")
	ErrDuplicateIdempotencyKey = errors.New("order with this idempotency key already exists")
	ErrPaymentMethodNotFound   = errors.New("payment method not found")
)

// Outbox event types.
const (
	EventOrderPlaced         = "OrderPlaced"
	EventOrderStatusAdvanced = "OrderStatusAdvanced"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a row written in the same transaction as the order change it
// describes and published later by the poller.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type OrderRepository interface {
	// CreateOrder stores order together with its OrderPlaced event.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	// AdvanceStatus moves id from expected to next only if it is still in
	// expected, and records an OrderStatusAdvanced event.
	AdvanceStatus(ctx context.Context, id uuid.UUID, expected, next domain.OrderStatus) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error)
	ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error)

	GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]*domain.PaymentMethod, error)
}

// OutboxRepository is what the outbox poller needs.
type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
