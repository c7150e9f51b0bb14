package enums

import "fmt"

// EventKind maps to the event_kind_enum enum in Postgres. It is the closed
// set of attestable documentation actions; payloads outside this set are
// rejected at the webhook boundary.
type EventKind string

const (
	EventKindEncounterNoteSigned       EventKind = "encounter_note_signed"
	EventKindLabResultReviewed         EventKind = "lab_result_reviewed"
	EventKindPrescriptionReconciled    EventKind = "prescription_reconciled"
	EventKindCarePlanUpdated           EventKind = "care_plan_updated"
	EventKindDischargeSummaryCompleted EventKind = "discharge_summary_completed"
)

var validEventKinds = []EventKind{
	EventKindEncounterNoteSigned,
	EventKindLabResultReviewed,
	EventKindPrescriptionReconciled,
	EventKindCarePlanUpdated,
	EventKindDischargeSummaryCompleted,
}

// String implements fmt.Stringer.
func (k EventKind) String() string {
	return string(k)
}

// IsValid reports whether the value matches the canonical event kind enum.
func (k EventKind) IsValid() bool {
	for _, candidate := range validEventKinds {
		if candidate == k {
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
