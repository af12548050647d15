package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	catalog "github.com/fjod/storefront/internal/catalog/domain"
	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/internal/orders/repository"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/fjod/storefront/pkg/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductReader looks up catalog products.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
}

// SubmissionService turns a client submission into a pending order.
type SubmissionService struct {
	repo     repository.OrderRepository
	products ProductReader
}

func NewSubmissionService(repo repository.OrderRepository, products ProductReader) *SubmissionService {
	return &SubmissionService{
		repo:     repo,
		products: products,
	}
}

// Submit validates sub, prices its lines from the catalog and stores a new
// pending order. A repeated idempotency key returns the order created first,
// or ErrIdempotencyKeyReused when the retry asks for something else.
// Nothing is written when validation fails.
func (s *SubmissionService) Submit(ctx context.Context, sub domain.Submission) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	if sub.IdempotencyKey != "" {
		existing, err := s.repo.GetOrderByIdempotencyKey(ctx, sub.IdempotencyKey)
		if err == nil {
			return replay(ctx, existing, sub)
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	var invalid []string

	addr := sub.ShippingAddress
	if strings.TrimSpace(addr.Country) == "" {
		invalid = append(invalid, "shipping_address.country")
	}
	if strings.TrimSpace(addr.City) == "" {
		invalid = append(invalid, "shipping_address.city")
	}
	if strings.TrimSpace(addr.Street) == "" {
		invalid = append(invalid, "shipping_address.street")
	}

	paymentOK, err := s.paymentMethodUsable(ctx, sub.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	if !paymentOK {
		invalid = append(invalid, "payment_method_id")
	}

	if len(sub.Lines) == 0 {
		invalid = append(invalid, "lines")
	}
	lines, lineFields, err := s.priceLines(ctx, sub.Lines)
	if err != nil {
		return nil, err
	}
	invalid = append(invalid, lineFields...)

	if len(invalid) > 0 {
		return nil, &domain.ValidationError{Fields: invalid}
	}

	totals := pricing.ComputeCartTotals(toPricingLines(lines))
	if !sub.Total.IsZero() && !sub.Total.Equal(totals.TotalPrice) {
		log.Warn("client total differs from recomputed subtotal",
			zap.String("client_total", sub.Total.String()),
			zap.String("subtotal", totals.TotalPrice.String()))
	}
	if !sub.Discount.IsZero() && !sub.Discount.Equal(totals.TotalDiscount) {
		log.Warn("client discount differs from recomputed discount",
			zap.String("client_discount", sub.Discount.String()),
			zap.String("discount_total", totals.TotalDiscount.String()))
	}

	order := &domain.Order{
		ID:              uuid.New(),
		Lines:           lines,
		Subtotal:        totals.TotalPrice,
		DiscountTotal:   totals.TotalDiscount,
		ShippingAddress: normalizeAddress(addr),
		PaymentMethodID: sub.PaymentMethodID,
		Status:          domain.StatusPending,
		CustomerID:      sub.CustomerID,
		PromoCode:       sub.PromoCode,
		IdempotencyKey:  sub.IdempotencyKey,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			// lost a race with a concurrent retry carrying the same key
			existing, err := s.repo.GetOrderByIdempotencyKey(ctx, sub.IdempotencyKey)
			if err != nil {
				return nil, fmt.Errorf("failed to load order for idempotency key: %w", err)
			}
			return replay(ctx, existing, sub)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("subtotal", order.Subtotal.String()),
		zap.Int("lines", len(order.Lines)))
	return order, nil
}

// replay returns the order placed under sub's key if sub asks for the same
// thing. An empty line list matches any lines: it is a checkout retried after
// the cart was cleared.
func replay(ctx context.Context, existing *domain.Order, sub domain.Submission) (*domain.Order, error) {
	log := logger.FromContext(ctx)
	if !sameSubmission(existing, sub) {
		log.Warn("idempotency key reused for a different submission",
			zap.String("idempotency_key", sub.IdempotencyKey),
			zap.String("order_id", existing.ID.String()))
		return nil, domain.ErrIdempotencyKeyReused
	}
	log.Info("returning order for repeated idempotency key",
		zap.String("order_id", existing.ID.String()))
	return existing, nil
}

func sameSubmission(o *domain.Order, sub domain.Submission) bool {
	if !sameCustomer(o.CustomerID, sub.CustomerID) || o.PaymentMethodID != sub.PaymentMethodID {
		return false
	}
	if o.ShippingAddress != normalizeAddress(sub.ShippingAddress) {
		return false
	}
	if len(sub.Lines) == 0 {
		return true
	}

	remaining := make(map[variantKey]int, len(o.Lines))
	for _, l := range o.Lines {
		remaining[variantKey{l.ProductID, l.SelectedColor, l.SelectedSize}] += l.Quantity
	}
	for _, l := range sub.Lines {
		k := variantKey{l.ProductID, l.SelectedColor, l.SelectedSize}
		if l.Quantity < 1 || l.Quantity > remaining[k] {
			return false
		}
		remaining[k] -= l.Quantity
	}
	for _, q := range remaining {
		if q != 0 {
			return false
		}
	}
	return true
}

func sameCustomer(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func normalizeAddress(a domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		Country:  strings.TrimSpace(a.Country),
		City:     strings.TrimSpace(a.City),
		Postcode: strings.TrimSpace(a.Postcode),
		Street:   strings.TrimSpace(a.Street),
	}
}

func (s *SubmissionService) paymentMethodUsable(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	pm, err := s.repo.GetPaymentMethod(ctx, id)
	if errors.Is(err, repository.ErrPaymentMethodNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load payment method: %w", err)
	}
	return pm.IsActive, nil
}

type variantKey struct {
	productID   int64
	color, size string
}

// priceLines re-prices every line from the catalog and merges lines of the
// same variant. Client prices are kept only for comparison. It returns the
// names of invalid line fields; an error is returned only for infrastructure
// failures and catalog defects.
func (s *SubmissionService) priceLines(ctx context.Context, in []domain.OrderLine) ([]domain.OrderLine, []string, error) {
	log := logger.FromContext(ctx)

	var (
		out     = make([]domain.OrderLine, 0, len(in))
		seen    = make(map[variantKey]int, len(in))
		invalid []string
	)
	for i, l := range in {
		field := fmt.Sprintf("lines[%d]", i)

		if l.Quantity < 1 || l.Quantity > domain.MaxLineQuantity {
			invalid = append(invalid, field+".quantity")
			continue
		}

		product, err := s.products.GetProduct(ctx, l.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			invalid = append(invalid, field+".product_id")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load product %d: %w", l.ProductID, err)
		}
		if !product.AcceptsColor(l.SelectedColor) {
			invalid = append(invalid, field+".selected_color")
		}
		if !product.AcceptsSize(l.SelectedSize) {
			invalid = append(invalid, field+".selected_size")
		}

		final, err := pricing.ComputeLineFinalPrice(product.Price, product.DiscountPercent)
		if err != nil {
			var discountErr *pricing.InvalidDiscountError
			if errors.As(err, &discountErr) {
				log.Error("catalog product has invalid discount",
					zap.Int64("product_id", product.ID),
					zap.String("discount_percent", discountErr.Percent.String()))
			}
			return nil, nil, fmt.Errorf("failed to price product %d: %w", product.ID, err)
		}

		if !l.UnitFinalPrice.IsZero() && !l.UnitFinalPrice.Equal(final) {
			log.Warn("client line price differs from catalog",
				zap.Int64("product_id", product.ID),
				zap.String("client_price", l.UnitFinalPrice.String()),
				zap.String("catalog_price", final.String()))
		}

		key := variantKey{product.ID, l.SelectedColor, l.SelectedSize}
		if j, ok := seen[key]; ok {
			if out[j].Quantity+l.Quantity > domain.MaxLineQuantity {
				invalid = append(invalid, field+".quantity")
				continue
			}
			out[j].Quantity += l.Quantity
			continue
		}
		seen[key] = len(out)

		imageRef := l.ImageRef
		if imageRef == "" {
			imageRef = product.ImageURL
		}
		out = append(out, domain.OrderLine{
			ProductID:      product.ID,
			DisplayName:    product.Name,
			UnitListPrice:  product.Price,
			UnitFinalPrice: final,
			Quantity:       l.Quantity,
			ImageRef:       imageRef,
			SelectedColor:  l.SelectedColor,
			SelectedSize:   l.SelectedSize,
		})
	}
	return out, invalid, nil
}

func toPricingLines(lines []domain.OrderLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, pricing.Line{
			ListPrice:  l.UnitListPrice,
			FinalPrice: l.UnitFinalPrice,
			Quantity:   l.Quantity,
		})
	}
	return out
}
