package enums

import "fmt"

// ProductSort orders catalog listings.
type ProductSort string

const (
	ProductSortPriceLow  ProductSort = "price-low"
	ProductSortPriceHigh ProductSort = "price-high"
	ProductSortNameAsc   ProductSort = "name-asc"
	ProductSortNameDesc  ProductSort = "name-desc"
	ProductSortNewest    ProductSort = "newest"
)

var validProductSorts = []ProductSort{
	ProductSortPriceLow,
	ProductSortPriceHigh,
	ProductSortNameAsc,
	ProductSortNameDesc,
	ProductSortNewest,
}

// String implements fmt.Stringer.
func (v ProductSort) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ProductSort.
func (v ProductSort) IsValid() bool {
	for _, candidate := range validProductSorts {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseProductSort converts raw input into a ProductSort.
func ParseProductSort(value string) (ProductSort, error) {
	for _, candidate := range validProductSorts {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product sort %q", value)
}
