package service

import (
	"context"

	cart "github.com/fjod/storefront/internal/cart/service"
	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/stretchr/testify/mock"
)

// MockCarts implements CartReader for testing
type MockCarts struct {
	mock.Mock
}

func (m *MockCarts) GetCart(ctx context.Context, sessionID string) (*cart.CartView, error) {
	args := m.Called(ctx, sessionID)
	view, _ := args.Get(0).(*cart.CartView)
	return view, args.Error(1)
}

func (m *MockCarts) ClearCart(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockOrders implements OrderSubmitter for testing
type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Submit(ctx context.Context, sub domain.Submission) (*domain.Order, error) {
	args := m.Called(ctx, sub)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}
