// Package cart owns the per-session shopping cart and its derived totals.
package cart

import (
	"github.com/shopspring/decimal"
)

// Line is one cart row. Two lines are the same item when ProductID and
// Variations match; a nil and an empty Variations map are equal.
type Line struct {
	ProductID  int64             `json:"id"`
	Name       string            `json:"name"`
	UnitPrice  decimal.Decimal   `json:"price"`
	Image      string            `json:"image"`
	Quantity   int               `json:"quantity"`
	Variations map[string]string `json:"variations,omitempty"`
}

// NewLine is the input to AddItem. Quantity defaults to 1.
type NewLine struct {
	ProductID  int64             `json:"product_id" validate:"required,gt=0"`
	Name       string            `json:"name"`
	UnitPrice  decimal.Decimal   `json:"price"`
	Image      string            `json:"image"`
	Quantity   int               `json:"quantity" validate:"omitempty,gte=1"`
	Variations map[string]string `json:"variations"`
}

// Cart is an ordered list of lines; insertion order is display order.
type Cart struct {
	Lines []Line `json:"lines"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c Cart) clone() Cart {
	if c.Lines == nil {
		return Cart{}
	}
	lines := make([]Line, len(c.Lines))
	for i, line := range c.Lines {
		line.Variations = cloneVariations(line.Variations)
		lines[i] = line
	}
	return Cart{Lines: lines}
}

func (l Line) sameItem(productID int64, variations map[string]string) bool {
	if l.ProductID != productID || len(l.Variations) != len(variations) {
		return false
	}
	for key, value := range l.Variations {
		other, ok := variations[key]
		if !ok || other != value {
			return false
		}
	}
	return true
}

func cloneVariations(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
