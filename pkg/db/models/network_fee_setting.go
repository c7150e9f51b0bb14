package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NetworkFeeSetting is the global treasury carve-out applied to every base
// reward before stakeholder splits. The most recently updated active row wins.
type NetworkFeeSetting struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TreasuryAccountID string          `gorm:"column:treasury_account_id;not null"`
	FeePercent        decimal.Decimal `gorm:"column:fee_percent;type:numeric(5,2);not null"`
	Active            bool            `gorm:"column:active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
