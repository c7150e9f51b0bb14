package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/attesthealth/attest-backend/pkg/enums"
)

// Attestation binds one DocumentationEvent to the signing authority that
// delivered it (1:1, enforced by the unique index on event_id). It stays
// pending until the reward distributor lands the primary ledger entry.
type Attestation struct {
	ID           uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      uuid.UUID               `gorm:"column:event_id;type:uuid;not null;uniqueIndex:idx_attestations_event_id"`
	SignerKeyRef string                  `gorm:"column:signer_key_ref;not null"`
	Signature    string                  `gorm:"column:signature;not null"`
	Status       enums.AttestationStatus `gorm:"column:status;type:attestation_status_enum;not null;default:'pending'"`
	ConfirmedAt  *time.Time              `gorm:"column:confirmed_at"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
