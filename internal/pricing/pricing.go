// Package pricing computes cart totals.
//
// The authoritative total is the sum of the exact line amounts rounded once
// to two decimals. Per-line subtotals are rounded independently and are for
// display only, so their sum may differ from the total by up to a cent per line.
package pricing

import "github.com/shopspring/decimal"

// Line is the minimal view of a cart line that pricing needs.
type Line struct {
	ProductID string
	Quantity  int
}

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmount is the exact, unrounded price * quantity.
func LineAmount(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// LineSubtotal is the display value of a single line.
func LineSubtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return Round2(LineAmount(price, quantity))
}

// ComputeTotal sums resolved lines and rounds once. Lines whose product is
// missing from prices are tombstoned and contribute nothing.
func ComputeTotal(lines []Line, prices map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		price, ok := prices[l.ProductID]
		if !ok {
			continue
		}
		sum = sum.Add(LineAmount(price, l.Quantity))
	}
	return Round2(sum)
}
