package policies

import (
	"context"

	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
)

// Repository reads reward policy and fee configuration.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ActivePolicyByKind(ctx context.Context, kind enums.EventKind) (*models.RewardPolicy, error)
	ActiveNetworkFee(ctx context.Context) (*models.NetworkFeeSetting, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a policy repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ActivePolicyByKind(ctx context.Context, kind enums.EventKind) (*models.RewardPolicy, error) {
	var policy models.RewardPolicy
	err := r.db.WithContext(ctx).
		Where("event_kind = ? AND active", kind).
		Order("updated_at DESC").
		First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repository) ActiveNetworkFee(ctx context.Context) (*models.NetworkFeeSetting, error) {
	var setting models.NetworkFeeSetting
	err := r.db.WithContext(ctx).
		Where("active").
		Order("updated_at DESC").
		First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}
