package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/go-chi/chi/v5"
)

type OrderAdvancer interface {
	Advance(ctx context.Context, orderID string, expected domain.OrderStatus) (*domain.Order, error)
}

// StaffHandler serves the fulfilment endpoints. Routes are mounted behind
// StaffOnly.
type StaffHandler struct {
	advancer OrderAdvancer
	tracker  OrderTracker
	timeout  time.Duration
}

func NewStaffHandler(advancer OrderAdvancer, tracker OrderTracker, timeout time.Duration) *StaffHandler {
	return &StaffHandler{
		advancer: advancer,
		tracker:  tracker,
		timeout:  timeout,
	}
}

type AdvanceRequestDTO struct {
	ExpectedCurrentStatus string `json:"expected_current_status"`
}

type AdvanceResponseDTO struct {
	OrderID string             `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
}

// GET /api/v1/staff/orders?status=&limit=
func (h *StaffHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	raw := r.URL.Query().Get("status")
	if raw == "" {
		raw = domain.StatusPending.String()
	}
	status, err := domain.ParseOrderStatus(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
	}

	orders, err := h.tracker.ListQueue(ctx, status, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

// POST /api/v1/staff/orders/{order_id}/advance
func (h *StaffHandler) Advance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AdvanceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.advancer.Advance(ctx, chi.URLParam(r, "order_id"), domain.OrderStatus(req.ExpectedCurrentStatus))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AdvanceResponseDTO{
		OrderID: order.ID.String(),
		Status:  order.Status,
	})
}
