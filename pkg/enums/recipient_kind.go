package enums

import "fmt"

// RecipientKind maps to the recipient_kind_enum enum in Postgres and records
// which stakeholder role a ledger entry credits.
type RecipientKind string

const (
	RecipientKindProvider     RecipientKind = "provider"
	RecipientKindOrganization RecipientKind = "organization"
	RecipientKindPatient      RecipientKind = "patient"
	RecipientKindTreasury     RecipientKind = "treasury"
)

var validRecipientKinds = []RecipientKind{
	RecipientKindProvider,
	RecipientKindOrganization,
	RecipientKindPatient,
	RecipientKindTreasury,
}

// String implements fmt.Stringer.
func (k RecipientKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k RecipientKind) IsValid() bool {
	for _, candidate := range validRecipientKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseRecipientKind converts raw input into a RecipientKind.
func ParseRecipientKind(value string) (RecipientKind, error) {
	for _, candidate := range validRecipientKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recipient kind %q", value)
}
