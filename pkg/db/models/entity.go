package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/attesthealth/attest-backend/pkg/enums"
)

// Entity is an actor in the reward network: provider, patient, organization,
// or the treasury account. Entities are never deleted; ledger history keeps
// referencing them.
type Entity struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID      string           `gorm:"column:account_id;type:text;not null;uniqueIndex:idx_entities_account_id"`
	Kind           enums.EntityKind `gorm:"column:kind;type:entity_kind_enum;not null"`
	DisplayName    string           `gorm:"column:display_name;not null"`
	OrganizationID *uuid.UUID       `gorm:"column:organization_id;type:uuid;index"`
	Verified       bool             `gorm:"column:verified;not null;default:false"`
	Metadata       json.RawMessage  `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
