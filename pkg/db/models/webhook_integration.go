package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookIntegration is a registered third-party sender. Secret is the shared
// HMAC key; it must be present for an integration to authenticate at all.
type WebhookIntegration struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex:idx_webhook_integrations_name"`
	Secret    string    `gorm:"column:secret;not null"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
