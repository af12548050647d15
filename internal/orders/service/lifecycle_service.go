package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// casAttempts bounds the compare-and-set loop: the first try plus one retry
// after a re-read that still shows the expected status.
const casAttempts = 2

// LifecycleService moves orders along the fulfillment path. It never sets a
// status directly; callers state the status they saw and get its successor.
type LifecycleService struct {
	repo repository.OrderRepository
}

func NewLifecycleService(repo repository.OrderRepository) *LifecycleService {
	return &LifecycleService{repo: repo}
}

// Advance moves orderID from expected to the next status.
func (s *LifecycleService) Advance(ctx context.Context, orderID string, expected domain.OrderStatus) (*domain.Order, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, &domain.NotFoundError{OrderID: orderID}
	}

	next, err := expected.Next()
	var terminal *domain.TerminalStateError
	if errors.As(err, &terminal) {
		return nil, s.terminalOrConflict(ctx, id, expected)
	}
	if err != nil {
		return nil, &domain.ValidationError{Fields: []string{"expected_current_status"}}
	}

	actual := expected
	for attempt := 0; attempt < casAttempts; attempt++ {
		order, err := s.repo.AdvanceStatus(ctx, id, expected, next)
		if err == nil {
			logger.FromContext(ctx).Info("order advanced",
				zap.String("order_id", orderID),
				zap.Stringer("from", expected),
				zap.Stringer("to", next))
			return order, nil
		}
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, &domain.NotFoundError{OrderID: orderID}
		}
		if !errors.Is(err, repository.ErrStatusMismatch) {
			return nil, fmt.Errorf("failed to advance order: %w", err)
		}

		current, err := s.repo.GetOrderByID(ctx, id)
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, &domain.NotFoundError{OrderID: orderID}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to re-read order: %w", err)
		}
		actual = current.Status
		if actual != expected {
			break
		}
	}

	return nil, &domain.ConflictError{OrderID: orderID, Expected: expected, Actual: actual}
}

// terminalOrConflict reports why an advance from a terminal status failed:
// the order is missing, it is not where the caller thinks, or it is done.
func (s *LifecycleService) terminalOrConflict(ctx context.Context, id uuid.UUID, expected domain.OrderStatus) error {
	current, err := s.repo.GetOrderByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return &domain.NotFoundError{OrderID: id.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to read order: %w", err)
	}
	if current.Status != expected {
		return &domain.ConflictError{OrderID: id.String(), Expected: expected, Actual: current.Status}
	}
	return &domain.TerminalStateError{OrderID: id.String(), Status: current.Status}
}
