package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attesthealth/attest-backend/pkg/enums"
)

// DocumentationEventRecorded is emitted when a new event clears verification
// and lands in storage.
type DocumentationEventRecorded struct {
	EventID       uuid.UUID       `json:"event_id"`
	Kind          enums.EventKind `json:"kind"`
	ContentHash   string          `json:"content_hash"`
	ActorEntityID uuid.UUID       `json:"actor_entity_id"`
	IntegrationID uuid.UUID       `json:"integration_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// DuplicateDeliveryAbsorbed records a redelivery that matched an existing
// content hash and produced no new state.
type DuplicateDeliveryAbsorbed struct {
	EventID       uuid.UUID `json:"event_id"`
	ContentHash   string    `json:"content_hash"`
	IntegrationID uuid.UUID `json:"integration_id"`
}

// RewardDistributed summarizes the ledger entries written for one attestation.
type RewardDistributed struct {
	AttestationID uuid.UUID       `json:"attestation_id"`
	EventID       uuid.UUID       `json:"event_id"`
	BaseReward    decimal.Decimal `json:"base_reward"`
	NetworkFee    decimal.Decimal `json:"network_fee"`
	EntryCount    int             `json:"entry_count"`
}

// AttestationConfirmed is emitted when an attestation reaches its terminal
// confirmed state.
type AttestationConfirmed struct {
	AttestationID uuid.UUID `json:"attestation_id"`
	EventID       uuid.UUID `json:"event_id"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// DailyCapReached records that an actor hit their policy cap and the event
// was parked for later distribution.
type DailyCapReached struct {
	AttestationID uuid.UUID       `json:"attestation_id"`
	ActorEntityID uuid.UUID       `json:"actor_entity_id"`
	Kind          enums.EventKind `json:"kind"`
	DailyCap      decimal.Decimal `json:"daily_cap"`
	AccruedToday  decimal.Decimal `json:"accrued_today"`
}

// TreasuryRoutingFailed alerts operators that the fee carve-out could not be
// credited because the treasury account is not registered.
type TreasuryRoutingFailed struct {
	AttestationID     uuid.UUID `json:"attestation_id"`
	TreasuryAccountID string    `json:"treasury_account_id"`
	Reason            string    `json:"reason"`
}

// EntityRegistered is emitted when a new entity joins the network.
type EntityRegistered struct {
	EntityID  uuid.UUID        `json:"entity_id"`
	AccountID string           `json:"account_id"`
	Kind      enums.EntityKind `json:"kind"`
}

// EntityOrganizationLinked records a provider being attached to an organization.
type EntityOrganizationLinked struct {
	EntityID       uuid.UUID `json:"entity_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}
