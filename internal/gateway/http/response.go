package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	cart "github.com/fjod/storefront/internal/cart/service"
	"github.com/fjod/storefront/internal/cart/store"
	catalog "github.com/fjod/storefront/internal/catalog/domain"
	orders "github.com/fjod/storefront/internal/orders/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/fjod/storefront/pkg/pricing"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Get().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps service errors to HTTP responses. Anything not
// recognised is logged and reported as a retryable internal error.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *orders.ValidationError
		notFoundErr   *orders.NotFoundError
		terminalErr   *orders.TerminalStateError
		conflictErr   *orders.ConflictError
		discountErr   *pricing.InvalidDiscountError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "validation_failed",
			Details: strings.Join(validationErr.Fields, ","),
		})
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, "not_found", notFoundErr.Error())
	case errors.As(err, &terminalErr):
		respondError(w, http.StatusConflict, "terminal_state", terminalErr.Error())
	case errors.As(err, &conflictErr):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   conflictErr.Error(),
			Code:    "conflict",
			Details: conflictErr.Actual.String(),
		})
	case errors.Is(err, orders.ErrIdempotencyKeyReused):
		respondError(w, http.StatusConflict, "idempotency_key_reused", err.Error())
	case errors.As(err, &discountErr):
		logger.FromContext(r.Context()).Error("catalog defect", zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog_defect", "product pricing is misconfigured")
	case errors.Is(err, store.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, store.ErrInvalidPrice), errors.Is(err, pricing.ErrNegativePrice):
		logger.FromContext(r.Context()).Error("catalog defect", zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog_defect", "product pricing is misconfigured")
	case errors.Is(err, cart.ErrInvalidVariant):
		respondError(w, http.StatusBadRequest, "invalid_variant", err.Error())
	case errors.Is(err, store.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.FromContext(r.Context()).Error("request failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "temporarily unavailable, please retry",
			Code:    "internal_error",
			Details: getRequestID(r.Context()),
		})
	}
}
