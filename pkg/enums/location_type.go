package enums

import "fmt"

// LocationType is the kind of entry attached to a shipping zone.
type LocationType string

const (
	LocationTypeCountry   LocationType = "country"
	LocationTypeContinent LocationType = "continent"
	LocationTypeState     LocationType = "state"
	LocationTypePostcode  LocationType = "postcode"
)

var validLocationTypes = []LocationType{
	LocationTypeCountry,
	LocationTypeContinent,
	LocationTypeState,
	LocationTypePostcode,
}

// String implements fmt.Stringer.
func (v LocationType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known LocationType.
func (v LocationType) IsValid() bool {
	for _, candidate := range validLocationTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseLocationType converts raw input into a LocationType.
func ParseLocationType(value string) (LocationType, error) {
	for _, candidate := range validLocationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid location type %q", value)
}
