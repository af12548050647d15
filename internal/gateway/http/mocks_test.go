package http

import (
	"context"
	"time"

	catalog "github.com/fjod/storefront/internal/catalog/domain"
	checkout "github.com/fjod/storefront/internal/checkout/service"
	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

const testTimeout = 5 * time.Second

type fakeCatalog map[int64]*catalog.Product

func (c fakeCatalog) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (c fakeCatalog) GetAllProducts(_ context.Context) ([]*catalog.Product, error) {
	var out []*catalog.Product
	for id := int64(1); id <= int64(len(c)); id++ {
		if p, ok := c[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func testCatalog() fakeCatalog {
	return fakeCatalog{
		1: {
			ID:              1,
			Name:            "Merino crew sweater",
			Price:           decimal.RequireFromString("100"),
			DiscountPercent: decimal.RequireFromString("20"),
			Colors:          []string{"grey", "navy"},
			Sizes:           []string{"S", "M", "L"},
		},
		2: {
			ID:              2,
			Name:            "Canvas tote bag",
			Price:           decimal.RequireFromString("50"),
			DiscountPercent: decimal.Zero,
		},
	}
}

// MockOrders implements OrderSubmitter, OrderTracker and OrderAdvancer.
type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) Submit(ctx context.Context, sub domain.Submission) (*domain.Order, error) {
	args := m.Called(ctx, sub)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockOrders) GetOrder(ctx context.Context, orderID string) (*domain.OrderView, error) {
	args := m.Called(ctx, orderID)
	view, _ := args.Get(0).(*domain.OrderView)
	return view, args.Error(1)
}

func (m *MockOrders) ListCustomerOrders(ctx context.Context, customerID string) ([]*domain.Order, error) {
	args := m.Called(ctx, customerID)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}

func (m *MockOrders) ListQueue(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error) {
	args := m.Called(ctx, status, limit)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}

func (m *MockOrders) PaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	args := m.Called(ctx)
	methods, _ := args.Get(0).([]*domain.PaymentMethod)
	return methods, args.Error(1)
}

func (m *MockOrders) Advance(ctx context.Context, orderID string, expected domain.OrderStatus) (*domain.Order, error) {
	args := m.Called(ctx, orderID, expected)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) Checkout(ctx context.Context, request *checkout.CheckoutRequest) (*domain.Order, error) {
	args := m.Called(ctx, request)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}
