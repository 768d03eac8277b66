package enums

import "fmt"

// EventKind names the domain notifications published on the event bus.
type EventKind string

const (
	EventKindCartChanged EventKind = "cart_changed"
	EventKindAuthChanged EventKind = "auth_changed"
)

var validEventKinds = []EventKind{
	EventKindCartChanged,
	EventKindAuthChanged,
}

// String implements fmt.Stringer.
func (v EventKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known EventKind.
func (v EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseEventKind converts raw input into an EventKind.
func ParseEventKind(value string) (EventKind, error) {
	for _, candidate := range validEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event kind %q", value)
}
