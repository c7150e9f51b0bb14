package attestations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
)

// Repository manages persistence for attestations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, attestation *models.Attestation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Attestation, error)
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.Attestation, error)
	Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error
	MarkStatus(ctx context.Context, id uuid.UUID, status enums.AttestationStatus) error
	ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]models.Attestation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an attestation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attestation *models.Attestation) error {
	return r.db.WithContext(ctx).Create(attestation).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Attestation, error) {
	var attestation models.Attestation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attestation).Error; err != nil {
		return nil, err
	}
	return &attestation, nil
}

func (r *repository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.Attestation, error) {
	var attestation models.Attestation
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&attestation).Error; err != nil {
		return nil, err
	}
	return &attestation, nil
}

// Confirm advances a pending attestation to confirmed. The status guard in
// the WHERE clause keeps terminal attestations immutable.
func (r *repository) Confirm(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Attestation{}).
		Where("id = ? AND status = ?", id, enums.AttestationStatusPending).
		Updates(map[string]any{
			"status":       enums.AttestationStatusConfirmed,
			"confirmed_at": confirmedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) MarkStatus(ctx context.Context, id uuid.UUID, status enums.AttestationStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Attestation{}).
		Where("id = ? AND status = ?", id, enums.AttestationStatusPending).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPendingOlderThan returns pending attestations whose creation predates
// the supplied age, oldest first. The retry worker uses the age gate to
// avoid racing webhook requests still inside their transaction.
func (r *repository) ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]models.Attestation, error) {
	cutoff := time.Now().UTC().Add(-age)
	var rows []models.Attestation
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.AttestationStatusPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
