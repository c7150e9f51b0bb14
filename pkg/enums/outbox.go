package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type_enum enum in Postgres.
type OutboxAggregateType string

const (
	AggregateDocumentationEvent OutboxAggregateType = "documentation_event"
	AggregateAttestation        OutboxAggregateType = "attestation"
	AggregateLedgerEntry        OutboxAggregateType = "ledger_entry"
	AggregateEntity             OutboxAggregateType = "entity"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateDocumentationEvent,
	AggregateAttestation,
	AggregateLedgerEntry,
	AggregateEntity,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type_enum enum in Postgres. These are the
// audit-trail actions emitted by the ingestion and distribution pipeline.
type OutboxEventType string

const (
	EventDocumentationRecorded  OutboxEventType = "documentation_event_recorded"
	EventDuplicateAbsorbed      OutboxEventType = "duplicate_delivery_absorbed"
	EventRewardDistributed      OutboxEventType = "reward_distributed"
	EventAttestationConfirmed   OutboxEventType = "attestation_confirmed"
	EventDailyCapReached        OutboxEventType = "daily_cap_reached"
	EventTreasuryRoutingFailed  OutboxEventType = "treasury_routing_failed"
	EventEntityRegistered       OutboxEventType = "entity_registered"
	EventEntityOrganizationLink OutboxEventType = "entity_organization_linked"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDocumentationRecorded,
	EventDuplicateAbsorbed,
	EventRewardDistributed,
	EventAttestationConfirmed,
	EventDailyCapReached,
	EventTreasuryRoutingFailed,
	EventEntityRegistered,
	EventEntityOrganizationLink,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason maps to the outbox_dlq_error_reason_enum enum in Postgres.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var validOutboxDLQErrorReasons = []OutboxDLQErrorReason{
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
}

// IsValid reports whether the value is known.
func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validOutboxDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
