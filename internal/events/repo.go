package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
)

// Repository manages persistence for documentation events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.DocumentationEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DocumentationEvent, error)
	FindByContentHash(ctx context.Context, contentHash string) (*models.DocumentationEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.DocumentationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DocumentationEvent, error) {
	var event models.DocumentationEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) FindByContentHash(ctx context.Context, contentHash string) (*models.DocumentationEvent, error) {
	var event models.DocumentationEvent
	if err := r.db.WithContext(ctx).Where("content_hash = ?", contentHash).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
