package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attesthealth/attest-backend/api/responses"
	"github.com/attesthealth/attest-backend/api/validators"
	"github.com/attesthealth/attest-backend/internal/entities"
	"github.com/attesthealth/attest-backend/internal/ledger"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/pagination"
)

type ledgerEntryResponse struct {
	ID             uuid.UUID               `json:"id"`
	AttestationID  uuid.UUID               `json:"attestation_id"`
	RecipientKind  enums.RecipientKind     `json:"recipient_kind"`
	Amount         decimal.Decimal         `json:"amount"`
	Status         enums.LedgerEntryStatus `json:"status"`
	SettlementRef  *string                 `json:"settlement_ref,omitempty"`
	CorrectionOfID *uuid.UUID              `json:"correction_of_id,omitempty"`
	ConfirmedAt    *time.Time              `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

type ledgerPageResponse struct {
	Entries    []ledgerEntryResponse `json:"entries"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

func toLedgerEntryResponse(entry models.RewardLedgerEntry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:             entry.ID,
		AttestationID:  entry.AttestationID,
		RecipientKind:  entry.RecipientKind,
		Amount:         entry.Amount,
		Status:         entry.Status,
		SettlementRef:  entry.SettlementRef,
		CorrectionOfID: entry.CorrectionOfID,
		ConfirmedAt:    entry.ConfirmedAt,
		CreatedAt:      entry.CreatedAt,
	}
}

// LedgerEntries streams a recipient's ledger history, newest first, with
// cursor pagination.
func LedgerEntries(entitySvc entities.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := resolveEntityRef(r, entitySvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := ledgerSvc.ListEntries(r.Context(), ledger.ListEntriesInput{
			RecipientID: entity.ID,
			Limit:       limit,
			Cursor:      r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := ledgerPageResponse{
			Entries:    make([]ledgerEntryResponse, 0, len(page.Entries)),
			NextCursor: page.NextCursor,
		}
		for _, entry := range page.Entries {
			resp.Entries = append(resp.Entries, toLedgerEntryResponse(entry))
		}
		responses.WriteSuccess(w, resp)
	}
}

// LedgerBalance reports the confirmed and pending totals for one recipient.
func LedgerBalance(entitySvc entities.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := resolveEntityRef(r, entitySvc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := ledgerSvc.Balance(r.Context(), entity.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}
