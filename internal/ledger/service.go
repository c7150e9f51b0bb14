package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
	"github.com/attesthealth/attest-backend/pkg/pagination"
)

// Service exposes ledger reads for API consumers.
type Service interface {
	ListEntries(ctx context.Context, input ListEntriesInput) (*EntriesPage, error)
	Balance(ctx context.Context, recipientID uuid.UUID) (*BalanceResult, error)
	AccruedSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (decimal.Decimal, error)
}

// ListEntriesInput carries the cursor pagination parameters for a recipient's
// ledger history.
type ListEntriesInput struct {
	RecipientID uuid.UUID
	Limit       int
	Cursor      string
}

// EntriesPage is one page of ledger history plus the cursor for the next.
type EntriesPage struct {
	Entries    []models.RewardLedgerEntry
	NextCursor string
}

// BalanceResult reports confirmed and pending totals for a recipient.
type BalanceResult struct {
	RecipientID uuid.UUID       `json:"recipient_id"`
	Confirmed   decimal.Decimal `json:"confirmed"`
	Pending     decimal.Decimal `json:"pending"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListEntries(ctx context.Context, input ListEntriesInput) (*EntriesPage, error) {
	if input.RecipientID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "recipient id is required")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Limit)
	rows, err := s.repo.ListByRecipient(ctx, input.RecipientID, cursor, pagination.LimitWithBuffer(input.Limit))
	if err != nil {
		return nil, err
	}

	page := &EntriesPage{Entries: rows}
	if len(rows) > limit {
		page.Entries = rows[:limit]
		last := page.Entries[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

func (s *service) Balance(ctx context.Context, recipientID uuid.UUID) (*BalanceResult, error) {
	if recipientID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "recipient id is required")
	}
	confirmed, err := s.repo.SumByRecipientAndStatus(ctx, recipientID, enums.LedgerEntryStatusConfirmed)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.SumByRecipientAndStatus(ctx, recipientID, enums.LedgerEntryStatusPending)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{
		RecipientID: recipientID,
		Confirmed:   confirmed,
		Pending:     pending,
	}, nil
}

func (s *service) AccruedSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	if recipientID == uuid.Nil {
		return decimal.Zero, apperrors.New(apperrors.CodeValidation, "recipient id is required")
	}
	return s.repo.SumForRecipientSince(ctx, recipientID, since)
}
