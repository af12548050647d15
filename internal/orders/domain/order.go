package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps one order line after lines of the same variant are merged.
const MaxLineQuantity = 99

// OrderLine is a priced line copied into an order at submission.
type OrderLine struct {
	ProductID      int64           `json:"product_id"`
	DisplayName    string          `json:"display_name"`
	UnitListPrice  decimal.Decimal `json:"unit_list_price"`
	UnitFinalPrice decimal.Decimal `json:"unit_final_price"`
	Quantity       int             `json:"quantity"`
	ImageRef       string          `json:"image_ref,omitempty"`
	SelectedColor  string          `json:"selected_color,omitempty"`
	SelectedSize   string          `json:"selected_size,omitempty"`
}

type ShippingAddress struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Postcode string `json:"postcode,omitempty"`
	Street   string `json:"street"`
}

// Order is immutable after creation except for Status and UpdatedAt, and
// Status only moves forward.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	Lines           []OrderLine     `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountTotal   decimal.Decimal `json:"discount_total"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethodID string          `json:"payment_method_id"`
	Status          OrderStatus     `json:"status"`
	CustomerID      *string         `json:"customer_id,omitempty"`
	PromoCode       string          `json:"promo_code,omitempty"`
	IdempotencyKey  string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type PaymentMethod struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Icon     string          `json:"icon"`
	Fee      decimal.Decimal `json:"fee"`
	IsActive bool            `json:"is_active"`
}

// OrderView is what tracking returns: the order and the payment method it
// references.
type OrderView struct {
	Order         *Order          `json:"order"`
	PaymentMethod *PaymentMethod  `json:"payment_method"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// Submission is an order request as received from a client. Total and
// Discount are the client's figures and are only compared, never trusted.
type Submission struct {
	Lines           []OrderLine
	Total           decimal.Decimal
	Discount        decimal.Decimal
	PromoCode       string
	ShippingAddress ShippingAddress
	PaymentMethodID string
	CustomerID      *string
	IdempotencyKey  string
}
