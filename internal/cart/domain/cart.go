package domain

import (
	"time"

	"github.com/fjod/storefront/pkg/pricing"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the quantity of a single line, merged adds included.
const MaxLineQuantity = 99

// CartLine is one product variant in a cart. Prices are fixed when the line is
// first added and never re-read from the catalog afterwards.
type CartLine struct {
	ProductID      int64           `json:"product_id"`
	DisplayName    string          `json:"display_name"`
	UnitListPrice  decimal.Decimal `json:"unit_list_price"`
	UnitFinalPrice decimal.Decimal `json:"unit_final_price"`
	Quantity       int             `json:"quantity"`
	ImageRef       string          `json:"image_ref,omitempty"`
	SelectedColor  string          `json:"selected_color,omitempty"`
	SelectedSize   string          `json:"selected_size,omitempty"`
}

// LineKey identifies a line within a cart. An empty Color or Size means no
// selection was made.
type LineKey struct {
	ProductID int64  `json:"product_id"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
}

func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Color: l.SelectedColor, Size: l.SelectedSize}
}

// Equal compares lines by value. Decimals are compared numerically so that
// 80 and 80.00 are the same price.
func (l CartLine) Equal(o CartLine) bool {
	return l.ProductID == o.ProductID &&
		l.DisplayName == o.DisplayName &&
		l.UnitListPrice.Equal(o.UnitListPrice) &&
		l.UnitFinalPrice.Equal(o.UnitFinalPrice) &&
		l.Quantity == o.Quantity &&
		l.ImageRef == o.ImageRef &&
		l.SelectedColor == o.SelectedColor &&
		l.SelectedSize == o.SelectedSize
}

// Cart is the persisted snapshot for one session.
type Cart struct {
	SessionID string     `json:"session_id"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Totals derives the cart totals from its lines.
func (c Cart) Totals() pricing.Totals {
	return pricing.ComputeCartTotals(PricingLines(c.Lines))
}

func PricingLines(lines []CartLine) []pricing.Line {
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

// LinesEqual reports whether a and b hold equal lines in the same order.
func LinesEqual(a, b []CartLine) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
