package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
	"github.com/attesthealth/attest-backend/pkg/pagination"
)

type fakeRepository struct {
	rows      []models.RewardLedgerEntry
	sums      map[enums.LedgerEntryStatus]decimal.Decimal
	lastLimit int
	cursor    *pagination.Cursor
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateBatch(ctx context.Context, entries []models.RewardLedgerEntry) error {
	f.rows = append(f.rows, entries...)
	return nil
}

func (f *fakeRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.RewardLedgerEntry, error) {
	f.lastLimit = limit
	f.cursor = cursor
	if limit >= len(f.rows) {
		return f.rows, nil
	}
	return f.rows[:limit], nil
}

func (f *fakeRepository) SumByRecipientAndStatus(ctx context.Context, recipientID uuid.UUID, status enums.LedgerEntryStatus) (decimal.Decimal, error) {
	if f.sums == nil {
		return decimal.Zero, nil
	}
	return f.sums[status], nil
}

func (f *fakeRepository) SumForRecipientSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, row := range f.rows {
		if !row.CreatedAt.Before(since) {
			total = total.Add(row.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepository) ExistsForAttestation(ctx context.Context, attestationID uuid.UUID) (bool, error) {
	return false, nil
}

func makeEntries(n int) []models.RewardLedgerEntry {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	entries := make([]models.RewardLedgerEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, models.RewardLedgerEntry{
			ID:        uuid.New(),
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Status:    enums.LedgerEntryStatusConfirmed,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return entries
}

func TestListEntriesPaginates(t *testing.T) {
	repo := &fakeRepository{rows: makeEntries(11)}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	page, err := svc.ListEntries(context.Background(), ListEntriesInput{
		RecipientID: uuid.New(),
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("ListEntries error: %v", err)
	}
	if len(page.Entries) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(page.Entries))
	}
	if page.NextCursor == "" {
		t.Fatal("expected next cursor when more rows exist")
	}
	if repo.lastLimit != 11 {
		t.Fatalf("expected limit+1 fetch, got %d", repo.lastLimit)
	}

	cursor, err := pagination.ParseCursor(page.NextCursor)
	if err != nil {
		t.Fatalf("next cursor should decode: %v", err)
	}
	last := page.Entries[9]
	if cursor.ID != last.ID || !cursor.CreatedAt.Equal(last.CreatedAt) {
		t.Fatalf("cursor should point at the last returned entry")
	}
}

func TestListEntriesLastPageHasNoCursor(t *testing.T) {
	repo := &fakeRepository{rows: makeEntries(4)}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	page, err := svc.ListEntries(context.Background(), ListEntriesInput{
		RecipientID: uuid.New(),
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("ListEntries error: %v", err)
	}
	if len(page.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(page.Entries))
	}
	if page.NextCursor != "" {
		t.Fatalf("expected empty cursor on last page, got %q", page.NextCursor)
	}
}

func TestListEntriesRejectsBadCursor(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.ListEntries(context.Background(), ListEntriesInput{
		RecipientID: uuid.New(),
		Cursor:      "!!!not-a-cursor",
	})
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBalanceSplitsConfirmedAndPending(t *testing.T) {
	repo := &fakeRepository{sums: map[enums.LedgerEntryStatus]decimal.Decimal{
		enums.LedgerEntryStatusConfirmed: decimal.RequireFromString("42.5"),
		enums.LedgerEntryStatusPending:   decimal.RequireFromString("7.25"),
	}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	balance, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if !balance.Confirmed.Equal(decimal.RequireFromString("42.5")) {
		t.Fatalf("unexpected confirmed balance %s", balance.Confirmed)
	}
	if !balance.Pending.Equal(decimal.RequireFromString("7.25")) {
		t.Fatalf("unexpected pending balance %s", balance.Pending)
	}
}

func TestBalanceRequiresRecipient(t *testing.T) {
	svc, err := NewService(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	_, err = svc.Balance(context.Background(), uuid.Nil)
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
