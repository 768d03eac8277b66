package catalog

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/commerce"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/shopspring/decimal"
)

const dateCreatedLayout = "2006-01-02T15:04:05"

// Query selects and orders products from the catalog.
type Query struct {
	Search     string
	Categories []string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       enums.ProductSort
	Page       int
	PerPage    int
}

// Filter applies the search, category and price rules of q and returns the
// matching products in q.Sort order. The input slice is not modified.
func Filter(products []commerce.Product, q Query) []commerce.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	categories := make(map[string]struct{}, len(q.Categories))
	for _, id := range q.Categories {
		if id = strings.TrimSpace(id); id != "" {
			categories[id] = struct{}{}
		}
	}

	out := make([]commerce.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if len(categories) > 0 && !inCategories(p, categories) {
			continue
		}
		if !inPriceRange(p, q.MinPrice, q.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	sortProducts(out, q.Sort)
	return out
}

func inCategories(p commerce.Product, wanted map[string]struct{}) bool {
	for _, cat := range p.Categories {
		if _, ok := wanted[strconv.FormatInt(cat.ID, 10)]; ok {
			return true
		}
	}
	return false
}

// inPriceRange keeps unpriced products regardless of the bounds.
func inPriceRange(p commerce.Product, min, max *decimal.Decimal) bool {
	price, ok := p.PriceValue()
	if !ok {
		return true
	}
	if min != nil && price.LessThan(*min) {
		return false
	}
	if max != nil && price.GreaterThan(*max) {
		return false
	}
	return true
}

func sortProducts(products []commerce.Product, by enums.ProductSort) {
	switch by {
	case enums.ProductSortPriceLow:
		sort.SliceStable(products, func(i, j int) bool { return priceLess(products[i], products[j], false) })
	case enums.ProductSortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool { return priceLess(products[i], products[j], true) })
	case enums.ProductSortNameAsc:
		sort.SliceStable(products, func(i, j int) bool { return nameLess(products[i].Name, products[j].Name) })
	case enums.ProductSortNameDesc:
		sort.SliceStable(products, func(i, j int) bool { return nameLess(products[j].Name, products[i].Name) })
	case enums.ProductSortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			a, aok := created(products[i])
			b, bok := created(products[j])
			if aok != bok {
				return aok
			}
			return a.After(b)
		})
	}
}

// priceLess orders priced products before unpriced ones in both directions.
func priceLess(a, b commerce.Product, desc bool) bool {
	pa, aok := a.PriceValue()
	pb, bok := b.PriceValue()
	if aok != bok {
		return aok
	}
	if !aok {
		return false
	}
	if desc {
		return pa.GreaterThan(pb)
	}
	return pa.LessThan(pb)
}

func nameLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

func created(p commerce.Product) (time.Time, bool) {
	raw := strings.TrimSpace(p.DateCreated)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateCreatedLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// DefaultSelections picks the first option of every attribute.
func DefaultSelections(p commerce.Product) map[string]string {
	out := make(map[string]string, len(p.Attributes))
	for _, attr := range p.Attributes {
		if len(attr.Options) > 0 {
			out[attr.Name] = attr.Options[0]
		}
	}
	return out
}

// MatchVariation returns the first variation whose every attribute is
// either unselected or equal to the selection.
func MatchVariation(variations []commerce.Variation, selections map[string]string) (commerce.Variation, bool) {
	if len(selections) == 0 {
		return commerce.Variation{}, false
	}
	for _, v := range variations {
		matched := true
		for _, attr := range v.Attributes {
			selected := selections[attr.Name]
			if selected != "" && selected != attr.Option {
				matched = false
				break
			}
		}
		if matched {
			return v, true
		}
	}
	return commerce.Variation{}, false
}
