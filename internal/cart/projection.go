package cart

import "github.com/shopspring/decimal"

const displayPlaces = 2

// Summary is the derived view shown next to a cart or checkout.
type Summary struct {
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
}

// LineTotal is UnitPrice * Quantity, unrounded.
func LineTotal(line Line) decimal.Decimal {
	return line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// DisplayLineTotal rounds LineTotal half-up to cents.
func DisplayLineTotal(line Line) decimal.Decimal {
	return LineTotal(line).Round(displayPlaces)
}

// Subtotal sums the unrounded line totals and rounds once.
func Subtotal(c Cart) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range c.Lines {
		sum = sum.Add(LineTotal(line))
	}
	return sum.Round(displayPlaces)
}

func ItemCount(c Cart) int {
	count := 0
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Summarize builds the order summary; a nil shipping cost counts as zero.
func Summarize(c Cart, shipping *decimal.Decimal) Summary {
	ship := decimal.Zero
	if shipping != nil {
		ship = shipping.Round(displayPlaces)
	}
	subtotal := Subtotal(c)
	return Summary{
		ItemCount: ItemCount(c),
		Subtotal:  subtotal,
		Shipping:  ship,
		Total:     subtotal.Add(ship),
	}
}
