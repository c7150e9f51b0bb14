package policies

import (
	"context"
	"encoding/json"
	"testing"

	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
)

type fakeRepository struct {
	policy *models.RewardPolicy
	fee    *models.NetworkFeeSetting
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) ActivePolicyByKind(ctx context.Context, kind enums.EventKind) (*models.RewardPolicy, error) {
	if f.policy == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.policy, nil
}

func (f *fakeRepository) ActiveNetworkFee(ctx context.Context) (*models.NetworkFeeSetting, error) {
	if f.fee == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.fee, nil
}

func TestActivePolicyRejectsInvalidKind(t *testing.T) {
	resolver, err := NewResolver(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected resolver error: %v", err)
	}

	_, err = resolver.ActivePolicy(context.Background(), enums.EventKind("bogus"))
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestActivePolicyAbsenceIsNotAnError(t *testing.T) {
	resolver, err := NewResolver(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected resolver error: %v", err)
	}

	policy, err := resolver.ActivePolicy(context.Background(), enums.EventKindLabResultReviewed)
	if err != nil {
		t.Fatalf("missing policy must not error, got %v", err)
	}
	if policy != nil {
		t.Fatalf("expected nil policy, got %+v", policy)
	}
}

func TestNetworkFeeMissingIsStateConflict(t *testing.T) {
	resolver, err := NewResolver(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected resolver error: %v", err)
	}

	_, err = resolver.NetworkFee(context.Background())
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestBonusRecipientAccountPrecedence(t *testing.T) {
	resolver, err := NewResolver(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected resolver error: %v", err)
	}

	tests := []struct {
		name     string
		metadata string
		want     string
	}{
		{
			name:     "bonus recipient wins over owner",
			metadata: `{"bonus_recipient_account":"acct_bonus","owner_account":"acct_owner"}`,
			want:     "acct_bonus",
		},
		{
			name:     "owner account fallback",
			metadata: `{"owner_account":"acct_owner"}`,
			want:     "acct_owner",
		},
		{
			name:     "whitespace-only bonus falls back",
			metadata: `{"bonus_recipient_account":"  ","owner_account":"acct_owner"}`,
			want:     "acct_owner",
		},
		{
			name:     "no hints",
			metadata: `{"note":"irrelevant"}`,
			want:     "",
		},
		{
			name:     "malformed metadata",
			metadata: `{not json`,
			want:     "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := resolver.BonusRecipientAccount(json.RawMessage(tc.metadata))
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}

	if got := resolver.BonusRecipientAccount(nil); got != "" {
		t.Fatalf("nil metadata should yield empty account, got %q", got)
	}
}
