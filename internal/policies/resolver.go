package policies

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
)

// Resolver answers the distribution-time policy questions: which policy
// covers an event kind, what the network fee is, and who receives the
// organization bonus. ActivePolicy returns (nil, nil) when no active policy
// covers the kind: events without a policy are still recorded, they just earn
// nothing.
type Resolver interface {
	ActivePolicy(ctx context.Context, kind enums.EventKind) (*models.RewardPolicy, error)
	NetworkFee(ctx context.Context) (*models.NetworkFeeSetting, error)
	BonusRecipientAccount(metadata json.RawMessage) string
	PatientAccount(metadata json.RawMessage) string
}

type resolver struct {
	repo Repository
}

// NewResolver wires a policy resolver with the provided repository.
func NewResolver(repo Repository) (Resolver, error) {
	if repo == nil {
		return nil, errors.New("policy repository required")
	}
	return &resolver{repo: repo}, nil
}

// eventMetadata carries the bonus-routing hints an integration may attach to
// a documentation event. bonus_recipient_account takes precedence over
// owner_account when both are present.
type eventMetadata struct {
	BonusRecipientAccount string `json:"bonus_recipient_account"`
	OwnerAccount          string `json:"owner_account"`
	PatientAccount        string `json:"patient_account"`
}

func (r *resolver) ActivePolicy(ctx context.Context, kind enums.EventKind) (*models.RewardPolicy, error) {
	if !kind.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid event kind").
			WithDetails(map[string]string{"kind": string(kind)})
	}
	policy, err := r.repo.ActivePolicyByKind(ctx, kind)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return policy, nil
}

func (r *resolver) NetworkFee(ctx context.Context) (*models.NetworkFeeSetting, error) {
	setting, err := r.repo.ActiveNetworkFee(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeStateConflict, "no active network fee setting")
		}
		return nil, err
	}
	return setting, nil
}

func (r *resolver) BonusRecipientAccount(metadata json.RawMessage) string {
	if len(metadata) == 0 {
		return ""
	}
	var meta eventMetadata
	if err := json.Unmarshal(metadata, &meta); err != nil {
		return ""
	}
	if account := strings.TrimSpace(meta.BonusRecipientAccount); account != "" {
		return account
	}
	return strings.TrimSpace(meta.OwnerAccount)
}

// PatientAccount returns the patient account hint attached to an event, if
// any. The patient split is minted only when this resolves to a registered
// entity.
func (r *resolver) PatientAccount(metadata json.RawMessage) string {
	if len(metadata) == 0 {
		return ""
	}
	var meta eventMetadata
	if err := json.Unmarshal(metadata, &meta); err != nil {
		return ""
	}
	return strings.TrimSpace(meta.PatientAccount)
}
