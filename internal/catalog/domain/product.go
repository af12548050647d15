package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// Product is read-only reference data. DiscountPercent is expected to lie in
// [0,100]; values outside that range are a catalog defect surfaced by pricing.
type Product struct {
	ID              int64
	Name            string
	Description     string
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	ImageURL        string
	Colors          []string
	Sizes           []string
	CreatedAt       time.Time
}

// AcceptsColor reports whether color is a valid selection. Products without
// colour variants accept only the empty selection.
func (p *Product) AcceptsColor(color string) bool {
	return acceptsOption(p.Colors, color)
}

func (p *Product) AcceptsSize(size string) bool {
	return acceptsOption(p.Sizes, size)
}

func acceptsOption(options []string, selected string) bool {
	if len(options) == 0 {
		return selected == ""
	}
	return slices.Contains(options, selected)
}
