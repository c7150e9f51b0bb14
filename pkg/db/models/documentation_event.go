package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/attesthealth/attest-backend/pkg/enums"
)

// DocumentationEvent is one attested real-world action. ContentHash is the
// canonical digest of the event's defining fields and is globally unique:
// the storage-level constraint, not application logic, is what closes the
// concurrent duplicate-delivery race.
type DocumentationEvent struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind           enums.EventKind `gorm:"column:kind;type:event_kind_enum;not null"`
	ContentHash    string          `gorm:"column:content_hash;type:char(64);not null;uniqueIndex:idx_documentation_events_content_hash"`
	OccurredAt     time.Time       `gorm:"column:occurred_at;not null"`
	ActorEntityID  uuid.UUID       `gorm:"column:actor_entity_id;type:uuid;not null;index"`
	OrganizationID *uuid.UUID      `gorm:"column:organization_id;type:uuid"`
	SubjectRef     *string         `gorm:"column:subject_ref"`
	IntegrationID  uuid.UUID       `gorm:"column:integration_id;type:uuid;not null"`
	Metadata       json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
