package enums

import "fmt"

// AttestationStatus maps to the attestation_status_enum enum in Postgres.
// pending is the only non-terminal state.
type AttestationStatus string

const (
	AttestationStatusPending   AttestationStatus = "pending"
	AttestationStatusConfirmed AttestationStatus = "confirmed"
	AttestationStatusRejected  AttestationStatus = "rejected"
	AttestationStatusExpired   AttestationStatus = "expired"
)

var validAttestationStatuses = []AttestationStatus{
	AttestationStatusPending,
	AttestationStatusConfirmed,
	AttestationStatusRejected,
	AttestationStatusExpired,
}

// String implements fmt.Stringer.
func (s AttestationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s AttestationStatus) IsValid() bool {
	for _, candidate := range validAttestationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (s AttestationStatus) IsTerminal() bool {
	return s == AttestationStatusConfirmed || s == AttestationStatusRejected || s == AttestationStatusExpired
}

// ParseAttestationStatus converts raw input into an AttestationStatus.
func ParseAttestationStatus(value string) (AttestationStatus, error) {
	for _, candidate := range validAttestationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attestation status %q", value)
}
