package pricing

import (
	"testing"

	"procurement/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestItemTotal(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice string
		quantity  int
		expected  string
	}{
		{name: "Whole Price", unitPrice: "10.00", quantity: 3, expected: "30.00"},
		{name: "Fractional Price", unitPrice: "0.1", quantity: 3, expected: "0.30"},
		{name: "Rounds Half Up", unitPrice: "0.335", quantity: 1, expected: "0.34"},
		{name: "Rounds After Multiplying", unitPrice: "1.005", quantity: 3, expected: "3.02"},
		{name: "Empty Price Is Zero", unitPrice: "", quantity: 4, expected: "0.00"},
		{name: "Non Numeric Price Is Zero", unitPrice: "abc", quantity: 2, expected: "0.00"},
		{name: "Padded Price", unitPrice: " 2.50 ", quantity: 2, expected: "5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ItemTotal(tt.unitPrice, tt.quantity))
		})
	}
}

func TestRequestTotal_TwoItems(t *testing.T) {
	items := []model.RequestItem{
		{Description: "Chair", Quantity: 3, UnitPrice: "10.00"},
		{Description: "Desk", Quantity: 3, UnitPrice: "10.00"},
	}

	assert.Equal(t, "60.00", RequestTotal(items))
}

func TestRequestTotal_NoFloatDrift(t *testing.T) {
	items := make([]model.RequestItem, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, model.RequestItem{Quantity: 1, UnitPrice: "0.10"})
	}

	assert.Equal(t, "1.00", RequestTotal(items))
}

func TestRequestTotal_SumsRoundedItemTotals(t *testing.T) {
	items := []model.RequestItem{
		{Quantity: 1, UnitPrice: "0.005"},
		{Quantity: 1, UnitPrice: "0.005"},
	}

	// each line rounds to 0.01 before summing
	assert.Equal(t, "0.02", RequestTotal(items))
}

func TestRequestTotal_Empty(t *testing.T) {
	assert.Equal(t, "0.00", RequestTotal(nil))
}

func TestRequestTotal_MatchesSumOfItemTotals(t *testing.T) {
	prices := []string{"0.01", "19.99", "3.333", "1000", "7.5", "0.125"}
	for q := 1; q <= 7; q++ {
		var items []model.RequestItem
		sum := decimal.Zero
		for _, p := range prices {
			items = append(items, model.RequestItem{Quantity: q, UnitPrice: p})
			sum = sum.Add(decimal.RequireFromString(ItemTotal(p, q)))
		}
		assert.Equal(t, sum.StringFixed(2), RequestTotal(items), "quantity %d", q)
	}
}

func TestPriceItems(t *testing.T) {
	items := []model.RequestItem{
		{Description: "Paper", Quantity: 2, UnitPrice: "4.25"},
		{Description: "Toner", Quantity: 1, UnitPrice: "79.9"},
	}

	total := PriceItems(items)

	assert.Equal(t, "8.50", items[0].TotalPrice)
	assert.Equal(t, "79.90", items[1].TotalPrice)
	assert.Equal(t, "88.40", total)
}

func TestParseStrict(t *testing.T) {
	d, err := ParseStrict(" 12.5 ")
	assert.NoError(t, err)
	assert.Equal(t, "12.50", Format(d))

	_, err = ParseStrict("12,5")
	assert.Error(t, err)
}
