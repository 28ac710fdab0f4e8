// Package pricing holds the money and discount arithmetic for carts and
// orders. Every function is total: out-of-range inputs are clamped, never
// rejected. All math runs on decimals; rounding to two places happens only
// when an amount is formatted for display or persisted onto a document.
package pricing

import (
	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
)

var oneHundred = decimal.NewFromInt(100)

// DefaultTaxRate is the fallback sales tax rate (8.25%) used when
// configuration supplies nothing else.
var DefaultTaxRate = decimal.NewFromFloat(0.0825)

// ItemTotal computes a line total after the item-level discount.
// Percent discounts cap at 100%, fixed discounts apply per unit, and the
// result never goes below zero.
func ItemTotal(item models.OrderItem) decimal.Decimal {
	qty := decimal.NewFromInt32(item.Quantity)
	base := item.UnitPrice.Mul(qty)

	if item.Discount.IsPositive() {
		switch item.DiscountType {
		case models.DiscountTypePercent:
			pct := item.Discount
			if pct.GreaterThan(oneHundred) {
				pct = oneHundred
			}
			base = base.Sub(base.Mul(pct).Div(oneHundred))
		default:
			base = base.Sub(item.Discount.Mul(qty))
		}
	}

	if base.IsNegative() {
		return decimal.Zero
	}
	return base
}

// Subtotal sums line totals across the cart.
func Subtotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(ItemTotal(item))
	}
	return total
}

// OrderDiscountAmount resolves the order-level discount into a currency
// amount. A fixed discount caps at the subtotal; a percent discount beyond
// 100% degrades to 100%. Negative discounts read as zero.
func OrderDiscountAmount(subtotal, discount decimal.Decimal, discountType models.DiscountType) decimal.Decimal {
	if !discount.IsPositive() {
		return decimal.Zero
	}

	switch discountType {
	case models.DiscountTypePercent:
		pct := discount
		if pct.GreaterThan(oneHundred) {
			pct = oneHundred
		}
		return subtotal.Mul(pct).Div(oneHundred)
	default:
		if discount.GreaterThan(subtotal) {
			return subtotal
		}
		return discount
	}
}

// Tax applies the rate to the discounted subtotal.
func Tax(subtotal, discountAmount, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discountAmount).Mul(rate)
}

// Total is the order's face value: subtotal - discount + tax.
func Total(subtotal, discountAmount, tax decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discountAmount).Add(tax)
}

// ParseAmount reads a user-supplied discount value. Empty, unparseable or
// negative input means "no discount", never an error.
func ParseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Display formats an amount for the presentation boundary.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
