package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/orders/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type OrderSubmitter interface {
	Submit(ctx context.Context, sub domain.Submission) (*domain.Order, error)
}

type OrderTracker interface {
	GetOrder(ctx context.Context, orderID string) (*domain.OrderView, error)
	ListCustomerOrders(ctx context.Context, customerID string) ([]*domain.Order, error)
	ListQueue(ctx context.Context, status domain.OrderStatus, limit int) ([]*domain.Order, error)
	PaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error)
}

type OrdersHandler struct {
	submitter OrderSubmitter
	tracker   OrderTracker
	timeout   time.Duration
}

func NewOrdersHandler(submitter OrderSubmitter, tracker OrderTracker, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		submitter: submitter,
		tracker:   tracker,
		timeout:   timeout,
	}
}

type OrderLineDTO struct {
	ProductID      int64           `json:"product_id"`
	DisplayName    string          `json:"display_name"`
	UnitListPrice  decimal.Decimal `json:"unit_list_price"`
	UnitFinalPrice decimal.Decimal `json:"unit_final_price"`
	Quantity       int             `json:"quantity"`
	ImageRef       string          `json:"image_ref,omitempty"`
	SelectedColor  string          `json:"selected_color,omitempty"`
	SelectedSize   string          `json:"selected_size,omitempty"`
}

type SubmitOrderRequestDTO struct {
	Lines           []OrderLineDTO         `json:"lines"`
	Total           decimal.Decimal        `json:"total"`
	Discount        decimal.Decimal        `json:"discount"`
	PromoCode       string                 `json:"promo_code,omitempty"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethodID string                 `json:"payment_method_id"`
	CustomerID      *string                `json:"customer_id,omitempty"`
	IdempotencyKey  string                 `json:"idempotency_key,omitempty"`
}

type PaymentMethodsResponse struct {
	PaymentMethods []*domain.PaymentMethod `json:"payment_methods"`
}

type OrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

func (d SubmitOrderRequestDTO) toSubmission() domain.Submission {
	lines := make([]domain.OrderLine, 0, len(d.Lines))
	for _, l := range d.Lines {
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
	return domain.Submission{
		Lines:           lines,
		Total:           d.Total,
		Discount:        d.Discount,
		PromoCode:       d.PromoCode,
		ShippingAddress: d.ShippingAddress,
		PaymentMethodID: d.PaymentMethodID,
		CustomerID:      d.CustomerID,
		IdempotencyKey:  d.IdempotencyKey,
	}
}

// POST /api/v1/orders
func (h *OrdersHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SubmitOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CustomerID == nil {
		req.CustomerID = getCustomerID(r.Context())
	}

	order, err := h.submitter.Submit(ctx, req.toSubmission())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	view, err := h.tracker.GetOrder(ctx, orderID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	customerID := getCustomerID(r.Context())
	if customerID == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing customer identity")
		return
	}

	orders, err := h.tracker.ListCustomerOrders(ctx, *customerID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

// GET /api/v1/payment-methods
func (h *OrdersHandler) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	methods, err := h.tracker.PaymentMethods(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if methods == nil {
		methods = []*domain.PaymentMethod{}
	}
	respondJSON(w, http.StatusOK, PaymentMethodsResponse{PaymentMethods: methods})
}
