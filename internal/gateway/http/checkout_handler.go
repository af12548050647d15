package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	checkout "github.com/fjod/storefront/internal/checkout/service"
	"github.com/fjod/storefront/internal/orders/domain"
)

type CheckoutHandler struct {
	checkout checkout.CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(svc checkout.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	IdempotencyKey  string                 `json:"idempotency_key,omitempty"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethodID string                 `json:"payment_method_id"`
	PromoCode       string                 `json:"promo_code,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.checkout.Checkout(ctx, &checkout.CheckoutRequest{
		SessionID:       getSessionID(r.Context()),
		IdempotencyKey:  req.IdempotencyKey,
		ShippingAddress: req.ShippingAddress,
		PaymentMethodID: req.PaymentMethodID,
		CustomerID:      getCustomerID(r.Context()),
		PromoCode:       req.PromoCode,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}
