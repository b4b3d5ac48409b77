// Package pricing derives the cart totals shown on the cart, checkout and
// header screens from a cart snapshot.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/freshcart/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// Rules configures shipping charges.
type Rules struct {
	// FreeShippingThreshold is the discounted subtotal at or above which
	// shipping is free. Zero disables free shipping.
	FreeShippingThreshold decimal.Decimal
	// ShippingFee is charged below the threshold.
	ShippingFee decimal.Decimal
}

// Summary is the derived pricing of a cart.
type Summary struct {
	Lines                 int
	Units                 int
	Subtotal              decimal.Decimal
	Discount              decimal.Decimal
	Shipping              decimal.Decimal
	Total                 decimal.Decimal
	FreeShippingRemaining decimal.Decimal
}

// Summarize computes the Summary of c under r.
func (r Rules) Summarize(c *cart.Cart) Summary {
	s := Summary{
		Lines:                 c.Len(),
		Units:                 c.Units(),
		Subtotal:              c.Subtotal().Round(2),
		Discount:              c.Discount().Round(2),
		Shipping:              decimal.Zero,
		FreeShippingRemaining: decimal.Zero,
	}
	if s.Lines == 0 {
		s.Total = decimal.Zero
		return s
	}

	net := floorAtZero(s.Subtotal.Sub(s.Discount))
	if r.FreeShippingThreshold.IsPositive() && net.GreaterThanOrEqual(r.FreeShippingThreshold) {
		s.Shipping = decimal.Zero
	} else {
		s.Shipping = floorAtZero(r.ShippingFee).Round(2)
	}
	if r.FreeShippingThreshold.IsPositive() {
		s.FreeShippingRemaining = floorAtZero(r.FreeShippingThreshold.Sub(net)).Round(2)
	}

	s.Total = net.Add(s.Shipping).Round(2)
	return s
}

// ItemDiscountPercent returns the whole-percent markdown from price to
// discounted, or 0 when discounted is not lower.
func ItemDiscountPercent(price decimal.Decimal, discounted decimal.NullDecimal) int {
	if !discounted.Valid || !price.IsPositive() || discounted.Decimal.GreaterThanOrEqual(price) {
		return 0
	}
	off := price.Sub(discounted.Decimal).Mul(hundred).Div(price)
	return int(off.Round(0).IntPart())
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
