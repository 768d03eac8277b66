package enums

import "fmt"

// ResolverState tracks the checkout resolver lifecycle.
type ResolverState string

const (
	ResolverStateIdle          ResolverState = "idle"
	ResolverStateLoadingZones  ResolverState = "loading_zones"
	ResolverStateZoneResolved  ResolverState = "zone_resolved"
	ResolverStateLoadingStates ResolverState = "loading_states"
	ResolverStateReady         ResolverState = "ready"
	ResolverStateError         ResolverState = "error"
)

var validResolverStates = []ResolverState{
	ResolverStateIdle,
	ResolverStateLoadingZones,
	ResolverStateZoneResolved,
	ResolverStateLoadingStates,
	ResolverStateReady,
	ResolverStateError,
}

// String implements fmt.Stringer.
func (v ResolverState) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ResolverState.
func (v ResolverState) IsValid() bool {
	for _, candidate := range validResolverStates {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseResolverState converts raw input into a ResolverState.
func ParseResolverState(value string) (ResolverState, error) {
	for _, candidate := range validResolverStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resolver state %q", value)
}
