package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/catalog/domain"
	"github.com/fjod/storefront/pkg/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductCatalog interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductHandler struct {
	catalog ProductCatalog
	timeout time.Duration
}

func NewProductHandler(catalog ProductCatalog, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type ProductResponse struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	ImageURL        string          `json:"image_url"`
	Colors          []string        `json:"colors"`
	Sizes           []string        `json:"sizes"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

func toProductResponse(p *domain.Product) (ProductResponse, error) {
	final, err := pricing.ComputeLineFinalPrice(p.Price, p.DiscountPercent)
	if err != nil {
		return ProductResponse{}, err
	}
	colors, sizes := p.Colors, p.Sizes
	if colors == nil {
		colors = []string{}
	}
	if sizes == nil {
		sizes = []string{}
	}
	return ProductResponse{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		DiscountPercent: p.DiscountPercent,
		FinalPrice:      final,
		ImageURL:        p.ImageURL,
		Colors:          colors,
		Sizes:           sizes,
	}, nil
}

// GET /api/v1/products
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.catalog.GetAllProducts(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	products := make([]ProductResponse, 0, len(res))
	for _, p := range res {
		dto, err := toProductResponse(p)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		products = append(products, dto)
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// GET /api/v1/products/{product_id}
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	p, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	dto, err := toProductResponse(p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto)
}
