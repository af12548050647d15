package service

import (
	"context"
	"fmt"

	cart "github.com/fjod/storefront/internal/cart/service"
	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/pkg/logger"
	"go.uber.org/zap"
)

// CartReader is the part of the cart service checkout depends on.
type CartReader interface {
	GetCart(ctx context.Context, sessionID string) (*cart.CartView, error)
	ClearCart(ctx context.Context, sessionID string) error
}

// OrderSubmitter places orders.
type OrderSubmitter interface {
	Submit(ctx context.Context, sub domain.Submission) (*domain.Order, error)
}

// CheckoutRequest carries what the customer entered on the checkout screen.
// The lines come from the session cart.
type CheckoutRequest struct {
	SessionID       string
	IdempotencyKey  string
	ShippingAddress domain.ShippingAddress
	PaymentMethodID string
	CustomerID      *string
	PromoCode       string
}

type CheckoutService interface {
	Checkout(ctx context.Context, request *CheckoutRequest) (*domain.Order, error)
}

type CheckoutServiceImpl struct {
	carts  CartReader
	orders OrderSubmitter
}

func NewCheckoutService(carts CartReader, orders OrderSubmitter) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		carts:  carts,
		orders: orders,
	}
}

// Checkout turns the session cart into a pending order. The cart is cleared
// only once the order is persisted; a failed clear is logged and the order is
// still returned.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, request *CheckoutRequest) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	view, err := s.carts.GetCart(ctx, request.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	// an empty cart is still submitted: a retry with a known idempotency key
	// resolves to the order placed before the cart was cleared. A key reused
	// for different cart contents fails, so the new cart is not cleared.
	order, err := s.orders.Submit(ctx, domain.Submission{
		Lines:           toOrderLines(view),
		Total:           view.Totals.TotalPrice,
		Discount:        view.Totals.TotalDiscount,
		PromoCode:       request.PromoCode,
		ShippingAddress: request.ShippingAddress,
		PaymentMethodID: request.PaymentMethodID,
		CustomerID:      request.CustomerID,
		IdempotencyKey:  request.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.ClearCart(ctx, request.SessionID); err != nil {
		log.Error("order placed but cart was not cleared",
			zap.String("order_id", order.ID.String()),
			zap.String("session_id", request.SessionID),
			zap.Error(err))
	}

	log.Info("checkout completed",
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(order.Lines)))
	return order, nil
}

func toOrderLines(view *cart.CartView) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID:      l.ProductID,
			DisplayName:    l.DisplayName,
			UnitListPrice:  l.UnitListPrice,
			UnitFinalPrice: l.UnitFinalPrice,
			Quantity:       l.Quantity,
			ImageRef:       l.ImageRef,
			SelectedColor:  l.SelectedColor,
			SelectedSize:   l.SelectedSize,
		})
	}
	return lines
}
