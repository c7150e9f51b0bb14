package entities

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
)

// Repository manages persistence for network entities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entity *models.Entity) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Entity, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Entity, error)
	UpdateOrganization(ctx context.Context, id, organizationID uuid.UUID) error
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an entity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entity *models.Entity) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	var entity models.Entity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repository) FindByAccountID(ctx context.Context, accountID string) (*models.Entity, error) {
	var entity models.Entity
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *repository) UpdateOrganization(ctx context.Context, id, organizationID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Entity{}).
		Where("id = ?", id).
		Update("organization_id", organizationID).Error
}

func (r *repository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return r.db.WithContext(ctx).Model(&models.Entity{}).
		Where("id = ?", id).
		Update("verified", verified).Error
}
