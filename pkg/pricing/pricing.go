// Package pricing holds the money arithmetic shared by the cart and the order
// submission path. Every function is pure: no I/O, no global state.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places of the store currency.
const MinorUnits = 2

var (
	hundred = decimal.NewFromInt(100)

	ErrNegativePrice = errors.New("price must not be negative")
)

// InvalidDiscountError reports a discount percentage outside [0,100]. It is a
// catalog defect, not user input.
type InvalidDiscountError struct {
	Percent decimal.Decimal
}

func (e *InvalidDiscountError) Error() string {
	return fmt.Sprintf("invalid discount %s%%: must be within [0,100]", e.Percent.String())
}

// Line is the pricing view of a cart or order line.
type Line struct {
	ListPrice  decimal.Decimal
	FinalPrice decimal.Decimal
	Quantity   int
}

// Totals are derived from lines and never stored on their own.
type Totals struct {
	TotalPrice     decimal.Decimal `json:"total_price"`
	TotalDiscount  decimal.Decimal `json:"total_discount"`
	TotalItemCount int             `json:"total_item_count"`
}

// ComputeLineFinalPrice applies discountPercent to listPrice and rounds half-up
// to the currency minor unit.
func ComputeLineFinalPrice(listPrice, discountPercent decimal.Decimal) (decimal.Decimal, error) {
	if listPrice.IsNegative() {
		return decimal.Zero, ErrNegativePrice
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return decimal.Zero, &InvalidDiscountError{Percent: discountPercent}
	}
	if discountPercent.IsZero() {
		return listPrice, nil
	}

	factor := hundred.Sub(discountPercent).Div(hundred)
	// prices are non-negative, so Round (half away from zero) is half-up here
	final := listPrice.Mul(factor).Round(MinorUnits)
	if final.GreaterThan(listPrice) {
		// only reachable when the list price carries sub-minor-unit digits
		return listPrice, nil
	}
	return final, nil
}

// ComputeCartTotals folds lines into totals. Empty input yields zeros.
func ComputeCartTotals(lines []Line) Totals {
	totals := Totals{
		TotalPrice:    decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		totals.TotalItemCount += l.Quantity
		totals.TotalPrice = totals.TotalPrice.Add(l.FinalPrice.Mul(qty))

		if l.ListPrice.GreaterThan(l.FinalPrice) {
			totals.TotalDiscount = totals.TotalDiscount.Add(l.ListPrice.Sub(l.FinalPrice).Mul(qty))
		}
	}
	return totals
}

// GrandTotal adds the flat payment-method fee to the subtotal.
func GrandTotal(subtotal, fee decimal.Decimal) decimal.Decimal {
	return subtotal.Add(fee)
}
