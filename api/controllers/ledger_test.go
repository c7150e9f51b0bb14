package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attesthealth/attest-backend/internal/ledger"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
)

type fakeLedgerService struct {
	lastInput ledger.ListEntriesInput
	page      *ledger.EntriesPage
	balance   *ledger.BalanceResult
}

func (f *fakeLedgerService) ListEntries(ctx context.Context, input ledger.ListEntriesInput) (*ledger.EntriesPage, error) {
	f.lastInput = input
	return f.page, nil
}

func (f *fakeLedgerService) Balance(ctx context.Context, recipientID uuid.UUID) (*ledger.BalanceResult, error) {
	return f.balance, nil
}

func (f *fakeLedgerService) AccruedSince(ctx context.Context, recipientID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func ledgerRouter(entitySvc *fakeEntityService, ledgerSvc ledger.Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/entities/{entityRef}/ledger", func(r chi.Router) {
		r.Get("/", LedgerEntries(entitySvc, ledgerSvc, nil))
		r.Get("/balance", LedgerBalance(entitySvc, ledgerSvc, nil))
	})
	return r
}

func TestLedgerEntriesPagination(t *testing.T) {
	entitySvc := newFakeEntityService()
	provider := &models.Entity{ID: uuid.New(), AccountID: "acct_provider_001", Kind: enums.EntityKindProvider}
	entitySvc.add(provider)

	ledgerSvc := &fakeLedgerService{page: &ledger.EntriesPage{
		Entries: []models.RewardLedgerEntry{
			{
				ID:            uuid.New(),
				AttestationID: uuid.New(),
				RecipientKind: enums.RecipientKindProvider,
				Amount:        decimal.RequireFromString("6.825"),
				Status:        enums.LedgerEntryStatusConfirmed,
			},
		},
		NextCursor: "opaque-cursor",
	}}
	router := ledgerRouter(entitySvc, ledgerSvc)

	req := httptest.NewRequest(http.MethodGet, "/entities/acct_provider_001/ledger?limit=10&cursor=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if ledgerSvc.lastInput.RecipientID != provider.ID {
		t.Fatalf("expected recipient resolved to %s, got %s", provider.ID, ledgerSvc.lastInput.RecipientID)
	}
	if ledgerSvc.lastInput.Limit != 10 || ledgerSvc.lastInput.Cursor != "abc" {
		t.Fatalf("query parameters not forwarded: %+v", ledgerSvc.lastInput)
	}

	var envelope struct {
		Data ledgerPageResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(envelope.Data.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(envelope.Data.Entries))
	}
	if envelope.Data.NextCursor != "opaque-cursor" {
		t.Fatalf("unexpected cursor %q", envelope.Data.NextCursor)
	}
}

func TestLedgerEntriesRejectsBadLimit(t *testing.T) {
	entitySvc := newFakeEntityService()
	provider := &models.Entity{ID: uuid.New(), AccountID: "acct_provider_001", Kind: enums.EntityKindProvider}
	entitySvc.add(provider)
	router := ledgerRouter(entitySvc, &fakeLedgerService{})

	req := httptest.NewRequest(http.MethodGet, "/entities/acct_provider_001/ledger?limit=junk", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLedgerBalance(t *testing.T) {
	entitySvc := newFakeEntityService()
	provider := &models.Entity{ID: uuid.New(), AccountID: "acct_provider_001", Kind: enums.EntityKindProvider}
	entitySvc.add(provider)

	ledgerSvc := &fakeLedgerService{balance: &ledger.BalanceResult{
		RecipientID: provider.ID,
		Confirmed:   decimal.RequireFromString("42.5"),
		Pending:     decimal.RequireFromString("7"),
	}}
	router := ledgerRouter(entitySvc, ledgerSvc)

	req := httptest.NewRequest(http.MethodGet, "/entities/acct_provider_001/ledger/balance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			Confirmed string `json:"confirmed"`
			Pending   string `json:"pending"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Data.Confirmed != "42.5" || envelope.Data.Pending != "7" {
		t.Fatalf("unexpected balance: %+v", envelope.Data)
	}
}
