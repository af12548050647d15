package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/cart/domain"
	cart "github.com/fjod/storefront/internal/cart/service"
)

const maxQuantity = 99

// CartOperations is what the cart endpoints need from the cart service.
type CartOperations interface {
	GetCart(ctx context.Context, sessionID string) (*cart.CartView, error)
	AddItem(ctx context.Context, sessionID string, in cart.AddItemInput) (*cart.CartView, error)
	UpdateQuantity(ctx context.Context, sessionID string, key domain.LineKey, quantity int) (*cart.CartView, error)
	RemoveItem(ctx context.Context, sessionID string, key domain.LineKey) (*cart.CartView, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type CartHandler struct {
	carts   CartOperations
	timeout time.Duration
}

func NewCartHandler(carts CartOperations, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type CartItemRequestDTO struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
}

func (d CartItemRequestDTO) key() domain.LineKey {
	return domain.LineKey{ProductID: d.ProductID, Color: d.Color, Size: d.Size}
}

// decodeItem reads the body and checks product_id. Quantity is checked by the
// caller since removal does not carry one.
func decodeItem(w http.ResponseWriter, r *http.Request) (CartItemRequestDTO, bool) {
	var req CartItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return req, false
	}
	return req, true
}

func validQuantity(w http.ResponseWriter, quantity int) bool {
	if quantity <= 0 || quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return false
	}
	return true
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.carts.GetCart(ctx, getSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := decodeItem(w, r)
	if !ok || !validQuantity(w, req.Quantity) {
		return
	}

	view, err := h.carts.AddItem(ctx, getSessionID(r.Context()), cart.AddItemInput{
		ProductID: req.ProductID,
		Color:     req.Color,
		Size:      req.Size,
		Quantity:  req.Quantity,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// PUT /api/v1/cart/items
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := decodeItem(w, r)
	if !ok || !validQuantity(w, req.Quantity) {
		return
	}

	view, err := h.carts.UpdateQuantity(ctx, getSessionID(r.Context()), req.key(), req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// DELETE /api/v1/cart/items
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req, ok := decodeItem(w, r)
	if !ok {
		return
	}

	view, err := h.carts.RemoveItem(ctx, getSessionID(r.Context()), req.key())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.ClearCart(ctx, getSessionID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
