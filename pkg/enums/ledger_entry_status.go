package enums

import "fmt"

// LedgerEntryStatus maps to the ledger_entry_status_enum enum in Postgres.
// It mirrors the attestation lifecycle. Terminal entries are immutable;
// corrections are made by appending offsetting entries, never by edits.
type LedgerEntryStatus string

const (
	LedgerEntryStatusPending   LedgerEntryStatus = "pending"
	LedgerEntryStatusConfirmed LedgerEntryStatus = "confirmed"
	LedgerEntryStatusRejected  LedgerEntryStatus = "rejected"
	LedgerEntryStatusExpired   LedgerEntryStatus = "expired"
)

var validLedgerEntryStatuses = []LedgerEntryStatus{
	LedgerEntryStatusPending,
	LedgerEntryStatusConfirmed,
	LedgerEntryStatusRejected,
	LedgerEntryStatusExpired,
}

// String implements fmt.Stringer.
func (s LedgerEntryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s LedgerEntryStatus) IsValid() bool {
	for _, candidate := range validLedgerEntryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions.
func (s LedgerEntryStatus) IsTerminal() bool {
	return s == LedgerEntryStatusConfirmed || s == LedgerEntryStatusRejected || s == LedgerEntryStatusExpired
}

// ParseLedgerEntryStatus converts raw input into a LedgerEntryStatus.
func ParseLedgerEntryStatus(value string) (LedgerEntryStatus, error) {
	for _, candidate := range validLedgerEntryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry status %q", value)
}
