package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attesthealth/attest-backend/pkg/enums"
)

// RewardPolicy maps an event kind to a base reward and stakeholder split
// percentages. Splits are each range-checked to [0,100]; whether they sum to
// 100 is the policy author's call and deliberately not enforced here.
type RewardPolicy struct {
	ID                       uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventKind                enums.EventKind  `gorm:"column:event_kind;type:event_kind_enum;not null;index"`
	BaseReward               decimal.Decimal  `gorm:"column:base_reward;type:numeric(20,8);not null"`
	ProviderSplitPercent     decimal.Decimal  `gorm:"column:provider_split_percent;type:numeric(5,2);not null"`
	OrganizationSplitPercent decimal.Decimal  `gorm:"column:organization_split_percent;type:numeric(5,2);not null;default:0"`
	PatientSplitPercent      decimal.Decimal  `gorm:"column:patient_split_percent;type:numeric(5,2);not null;default:0"`
	DailyCapPerActor         *decimal.Decimal `gorm:"column:daily_cap_per_actor;type:numeric(20,8)"`
	Active                   bool             `gorm:"column:active;not null;default:false"`
	CreatedAt                time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
