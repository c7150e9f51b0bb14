package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attesthealth/attest-backend/pkg/enums"
)

// RewardLedgerEntry is one append-only credit to one recipient, derived from
// one attestation. Amounts are non-negative fixed-point decimals. A terminal
// entry is never edited; corrections append offsetting entries that reference
// the original via CorrectionOfID.
type RewardLedgerEntry struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AttestationID     uuid.UUID               `gorm:"column:attestation_id;type:uuid;not null;index"`
	RecipientEntityID uuid.UUID               `gorm:"column:recipient_entity_id;type:uuid;not null;index:idx_reward_ledger_recipient_status,priority:1"`
	RecipientKind     enums.RecipientKind     `gorm:"column:recipient_kind;type:recipient_kind_enum;not null"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(20,8);not null"`
	Status            enums.LedgerEntryStatus `gorm:"column:status;type:ledger_entry_status_enum;not null;default:'pending';index:idx_reward_ledger_recipient_status,priority:2"`
	SettlementRef     *string                 `gorm:"column:settlement_ref"`
	CorrectionOfID    *uuid.UUID              `gorm:"column:correction_of_id;type:uuid"`
	ConfirmedAt       *time.Time              `gorm:"column:confirmed_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}
