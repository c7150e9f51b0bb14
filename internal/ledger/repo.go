package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	"github.com/attesthealth/attest-backend/pkg/pagination"
)

// Repository manages persistence for reward ledger entries. The ledger is
// append-only: entries are inserted and their status advanced, never edited
// or removed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, entries []models.RewardLedgerEntry) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.RewardLedgerEntry, error)
	SumByRecipientAndStatus(ctx context.Context, recipientID uuid.UUID, status enums.LedgerEntryStatus) (decimal.Decimal, error)
	SumForRecipientSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (decimal.Decimal, error)
	ExistsForAttestation(ctx context.Context, attestationID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, entries []models.RewardLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.RewardLedgerEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.RewardLedgerEntry{}).
		Where("recipient_entity_id = ?", recipientID)

	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(limit)

	var rows []models.RewardLedgerEntry
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) SumByRecipientAndStatus(ctx context.Context, recipientID uuid.UUID, status enums.LedgerEntryStatus) (decimal.Decimal, error) {
	return r.sum(ctx, r.db.WithContext(ctx).Model(&models.RewardLedgerEntry{}).
		Where("recipient_entity_id = ? AND status = ?", recipientID, status))
}

func (r *repository) SumForRecipientSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, r.db.WithContext(ctx).Model(&models.RewardLedgerEntry{}).
		Where("recipient_entity_id = ?", recipientID).
		Where("created_at >= ?", since).
		Where("status IN ?", []enums.LedgerEntryStatus{enums.LedgerEntryStatusPending, enums.LedgerEntryStatusConfirmed}))
}

func (r *repository) sum(ctx context.Context, query *gorm.DB) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := query.Select("SUM(amount)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) ExistsForAttestation(ctx context.Context, attestationID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RewardLedgerEntry{}).
		Where("attestation_id = ?", attestationID).
		Count(&count).Error
	return count > 0, err
}
