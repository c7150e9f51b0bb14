package enums

import "fmt"

// EntityKind maps to the entity_kind_enum enum in Postgres.
type EntityKind string

const (
	EntityKindProvider     EntityKind = "provider"
	EntityKindPatient      EntityKind = "patient"
	EntityKindOrganization EntityKind = "organization"
	EntityKindTreasury     EntityKind = "treasury"
)

var validEntityKinds = []EntityKind{
	EntityKindProvider,
	EntityKindPatient,
	EntityKindOrganization,
	EntityKindTreasury,
}

// String implements fmt.Stringer.
func (k EntityKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k EntityKind) IsValid() bool {
	for _, candidate := range validEntityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEntityKind converts raw input into an EntityKind.
func ParseEntityKind(value string) (EntityKind, error) {
	for _, candidate := range validEntityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity kind %q", value)
}
