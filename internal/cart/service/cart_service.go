package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/cart/domain"
	"github.com/fjod/storefront/internal/cart/store"
	catalog "github.com/fjod/storefront/internal/catalog/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/fjod/storefront/pkg/pricing"
	"go.uber.org/zap"
)

var ErrInvalidVariant = errors.New("selected color or size is not offered for this product")

// ProductReader looks up catalog products.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
}

// AddItemInput is a customer's request to put a product variant in the cart.
type AddItemInput struct {
	ProductID int64
	Color     string
	Size      string
	Quantity  int
}

// CartView is a cart with its derived totals.
type CartView struct {
	SessionID string            `json:"session_id"`
	Lines     []domain.CartLine `json:"lines"`
	Totals    pricing.Totals    `json:"totals"`
}

// CartService runs customer cart operations against a session Store.
type CartService struct {
	products  ProductReader
	persister store.Persister
}

func NewCartService(products ProductReader, persister store.Persister) *CartService {
	return &CartService{
		products:  products,
		persister: persister,
	}
}

// OpenStore opens the cart of sessionID.
func (s *CartService) OpenStore(ctx context.Context, sessionID string) (*store.Store, error) {
	return store.Open(ctx, sessionID, s.persister)
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartView, error) {
	st, err := s.OpenStore(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return view(st), nil
}

// AddItem prices the product from the catalog and merges it into the cart.
// The unit prices are fixed at this point.
func (s *CartService) AddItem(ctx context.Context, sessionID string, in AddItemInput) (*CartView, error) {
	if in.Quantity < 1 {
		return nil, store.ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.AcceptsColor(in.Color) || !product.AcceptsSize(in.Size) {
		return nil, ErrInvalidVariant
	}

	final, err := pricing.ComputeLineFinalPrice(product.Price, product.DiscountPercent)
	if err != nil {
		var discountErr *pricing.InvalidDiscountError
		if errors.As(err, &discountErr) {
			logger.FromContext(ctx).Error("catalog product has invalid discount",
				zap.Int64("product_id", product.ID),
				zap.String("discount_percent", discountErr.Percent.String()))
		}
		return nil, fmt.Errorf("failed to price product %d: %w", product.ID, err)
	}

	st, err := s.OpenStore(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	line := domain.CartLine{
		ProductID:      product.ID,
		DisplayName:    product.Name,
		UnitListPrice:  product.Price,
		UnitFinalPrice: final,
		Quantity:       in.Quantity,
		ImageRef:       product.ImageURL,
		SelectedColor:  in.Color,
		SelectedSize:   in.Size,
	}
	if err := st.AddItem(ctx, line); err != nil {
		return nil, err
	}
	return view(st), nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, key domain.LineKey, quantity int) (*CartView, error) {
	st, err := s.OpenStore(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := st.UpdateQuantity(ctx, key, quantity); err != nil {
		return nil, err
	}
	return view(st), nil
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, key domain.LineKey) (*CartView, error) {
	st, err := s.OpenStore(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := st.RemoveItem(ctx, key); err != nil {
		return nil, err
	}
	return view(st), nil
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	st, err := s.OpenStore(ctx, sessionID)
	if err != nil {
		return err
	}
	return st.Clear(ctx)
}

func view(st *store.Store) *CartView {
	lines := st.Lines()
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return &CartView{
		SessionID: st.SessionID(),
		Lines:     lines,
		Totals:    st.Totals(),
	}
}
