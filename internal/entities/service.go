package entities

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/internal/audit"
	"github.com/attesthealth/attest-backend/pkg/db"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
	"github.com/attesthealth/attest-backend/pkg/outbox/payloads"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines operations over the entity registry.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Entity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Entity, error)
	GetByAccountID(ctx context.Context, accountID string) (*models.Entity, error)
	LinkOrganization(ctx context.Context, entityID, organizationID uuid.UUID) error
	SetVerified(ctx context.Context, entityID uuid.UUID, verified bool) error
}

// RegisterInput captures a new entity joining the network.
type RegisterInput struct {
	AccountID   string           `json:"account_id"`
	Kind        enums.EntityKind `json:"kind"`
	DisplayName string           `json:"display_name"`
	Metadata    json.RawMessage  `json:"metadata"`
}

type service struct {
	repo  Repository
	tx    TxRunner
	audit *audit.Service
}

// NewService wires an entity service. Registry changes emit audit events, so
// they commit together with the rows they describe.
func NewService(repo Repository, tx TxRunner, auditSvc *audit.Service) (Service, error) {
	if repo == nil {
		return nil, errors.New("entity repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if auditSvc == nil {
		return nil, errors.New("audit service required")
	}
	return &service{repo: repo, tx: tx, audit: auditSvc}, nil
}

// NormalizeAccountID maps external account identifiers to their canonical
// form. Account IDs are matched case-insensitively everywhere, so they are
// stored lowercased.
func NormalizeAccountID(accountID string) string {
	return strings.ToLower(strings.TrimSpace(accountID))
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Entity, error) {
	accountID := NormalizeAccountID(input.AccountID)
	if accountID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "account_id is required")
	}
	if !input.Kind.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid entity kind").
			WithDetails(map[string]string{"kind": string(input.Kind)})
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "display_name is required")
	}

	entity := &models.Entity{
		AccountID:   accountID,
		Kind:        input.Kind,
		DisplayName: displayName,
		Metadata:    input.Metadata,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, entity); err != nil {
			return err
		}
		return s.audit.EntityRegistered(ctx, tx, payloads.EntityRegistered{
			EntityID:  entity.ID,
			AccountID: entity.AccountID,
			Kind:      entity.Kind,
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_entities_account_id") {
			return nil, apperrors.Wrap(apperrors.CodeConflict, err, "account already registered").
				WithDetails(map[string]string{"account_id": accountID})
		}
		return nil, err
	}
	return entity, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	if id == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "entity id is required")
	}
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "entity not found")
		}
		return nil, err
	}
	return entity, nil
}

func (s *service) GetByAccountID(ctx context.Context, accountID string) (*models.Entity, error) {
	normalized := NormalizeAccountID(accountID)
	if normalized == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "account_id is required")
	}
	entity, err := s.repo.FindByAccountID(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "entity not found").
				WithDetails(map[string]string{"account_id": normalized})
		}
		return nil, err
	}
	return entity, nil
}

func (s *service) LinkOrganization(ctx context.Context, entityID, organizationID uuid.UUID) error {
	if entityID == uuid.Nil || organizationID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "entity id and organization id are required")
	}
	org, err := s.GetByID(ctx, organizationID)
	if err != nil {
		return err
	}
	if org.Kind != enums.EntityKindOrganization {
		return apperrors.New(apperrors.CodeStateConflict, "link target is not an organization").
			WithDetails(map[string]string{"kind": string(org.Kind)})
	}
	member, err := s.GetByID(ctx, entityID)
	if err != nil {
		return err
	}
	if member.Kind == enums.EntityKindOrganization || member.Kind == enums.EntityKindTreasury {
		return apperrors.New(apperrors.CodeStateConflict, "entity kind cannot join an organization").
			WithDetails(map[string]string{"kind": string(member.Kind)})
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateOrganization(ctx, entityID, organizationID); err != nil {
			return err
		}
		return s.audit.OrganizationLinked(ctx, tx, payloads.EntityOrganizationLinked{
			EntityID:       entityID,
			OrganizationID: organizationID,
		})
	})
}

func (s *service) SetVerified(ctx context.Context, entityID uuid.UUID, verified bool) error {
	if entityID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "entity id is required")
	}
	if _, err := s.GetByID(ctx, entityID); err != nil {
		return err
	}
	return s.repo.SetVerified(ctx, entityID, verified)
}
