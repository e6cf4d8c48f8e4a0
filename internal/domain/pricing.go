package domain

import "github.com/shopspring/decimal"

// EffectivePrice returns the price a buyer pays for one unit, with the
// discount percentage applied when the product carries one. Results are
// rounded to two decimal places to match the catalog's decimal fields.
func (p Product) EffectivePrice() decimal.Decimal {
	if !p.HasDiscount || p.DiscountPercent <= 0 {
		return p.Price
	}
	factor := decimal.NewFromInt(int64(100 - p.DiscountPercent)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor).Round(2)
}

// Subtotal is the line's listed unit price multiplied by its quantity.
// Discount percentages are advertisement only; the listed price is what the
// catalog charges.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LinesTotal sums the subtotals of a set of cart lines.
func LinesTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
