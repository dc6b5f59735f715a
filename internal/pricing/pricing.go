// Package pricing computes line item and request totals with fixed two-place rounding.
package pricing

import (
	"strings"

	"procurement/internal/model"

	"github.com/shopspring/decimal"
)

// Places is the number of fraction digits every amount is rendered with.
const Places = 2

// ParseAmount parses a decimal string. Empty or non-numeric input counts as zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseStrict parses a decimal string and reports malformed input instead of
// treating it as zero.
func ParseStrict(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// Format renders an amount with exactly two fraction digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// ItemTotalDecimal returns quantity × unit price rounded to two places.
func ItemTotalDecimal(unitPrice string, quantity int) decimal.Decimal {
	return ParseAmount(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).Round(Places)
}

// ItemTotal returns quantity × unit price as a two-place decimal string.
func ItemTotal(unitPrice string, quantity int) string {
	return Format(ItemTotalDecimal(unitPrice, quantity))
}

// RequestTotal sums the rounded item totals.
func RequestTotal(items []model.RequestItem) string {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(ItemTotalDecimal(item.UnitPrice, item.Quantity))
	}
	return Format(total)
}

// PriceItems fills TotalPrice on every item and returns the request total.
func PriceItems(items []model.RequestItem) string {
	for i := range items {
		items[i].TotalPrice = ItemTotal(items[i].UnitPrice, items[i].Quantity)
	}
	return RequestTotal(items)
}
