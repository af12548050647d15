package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/pkg/pricing"
	"github.com/google/uuid"
)

// DefaultQueueLimit caps staff queue listings.
const DefaultQueueLimit = 100

// TrackingService answers read queries about orders. Lookups by id are not
// scoped to a customer: the random order id is the credential.
type TrackingService struct {
	repo repository.OrderRepository
}

func NewTrackingService(repo repository.OrderRepository) *TrackingService {
	return &TrackingService{repo: repo}
}

func (s *TrackingService) GetOrder(ctx context.Context, orderID string) (*domain.OrderView, error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, &domain.NotFoundError{OrderID: orderID}
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &domain.NotFoundError{OrderID: orderID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	pm, err := s.repo.GetPaymentMethod(ctx, order.PaymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method %s: %w", order.PaymentMethodID, err)
	}

	return &domain.OrderView{
		Order:         order,
		PaymentMethod: pm,
		GrandTotal:    pricing.GrandTotal(order.Subtotal, pm.Fee),
	}, nil
}

// ListCustomerOrders returns a customer's orders, newest first.
func (s *TrackingService) ListCustomerOrders(ctx context.Context, customerID string) ([]*domain.Order, error) {
	orders, err := s.repo.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer orders: %w", err)
	}
	return orders, nil
}

// ListQueue returns orders in status, oldest first.
func (s *TrackingService) ListQueue(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	if limit <= 0 || limit > DefaultQueueLimit {
		limit = DefaultQueueLimit
	}
	orders, err := s.repo.ListOrdersByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	return orders, nil
}

// PaymentMethods lists the methods a customer can choose at checkout.
func (s *TrackingService) PaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	methods, err := s.repo.ListPaymentMethods(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}
