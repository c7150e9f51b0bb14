package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/internal/attestations"
	"github.com/attesthealth/attest-backend/internal/entities"
	"github.com/attesthealth/attest-backend/pkg/config"
	dbpkg "github.com/attesthealth/attest-backend/pkg/db"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Recorder turns verified webhook deliveries into stored documentation
// events with their pending attestations.
type Recorder interface {
	Record(ctx context.Context, input RecordInput) (*RecordResult, error)
}

// RecordInput is a verified, parsed documentation event delivery.
type RecordInput struct {
	Kind                  enums.EventKind
	OccurredAt            time.Time
	ActorAccountID        string
	OrganizationAccountID string
	SubjectRef            string
	IntegrationID         uuid.UUID
	SignerKeyRef          string
	Signature             string
	Metadata              json.RawMessage
}

// RecordResult reports what Record did. Created is false when the delivery
// matched an existing content hash and was absorbed.
type RecordResult struct {
	Event       *models.DocumentationEvent
	Attestation *models.Attestation
	Created     bool
}

type recorder struct {
	cfg          config.WebhookConfig
	tx           TxRunner
	events       Repository
	attestations attestations.Repository
	entities     entities.Repository
	now          func() time.Time
}

// NewRecorder wires an event recorder.
func NewRecorder(cfg config.WebhookConfig, tx TxRunner, events Repository, atts attestations.Repository, ents entities.Repository) (Recorder, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if events == nil {
		return nil, errors.New("event repository required")
	}
	if atts == nil {
		return nil, errors.New("attestation repository required")
	}
	if ents == nil {
		return nil, errors.New("entity repository required")
	}
	return &recorder{
		cfg:          cfg,
		tx:           tx,
		events:       events,
		attestations: atts,
		entities:     ents,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *recorder) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	contentHash := ContentHash(input.Kind, input.OccurredAt, input.ActorAccountID, input.SubjectRef)

	// Dedup before any validation: a redelivery of a stored event must stay a
	// duplicate even after its timestamp has aged out of the freshness window.
	if existing, err := r.events.FindByContentHash(ctx, contentHash); err == nil {
		return r.duplicateResult(ctx, existing)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.validate(input); err != nil {
		return nil, err
	}

	actor, err := r.resolveEntity(ctx, input.ActorAccountID)
	if err != nil {
		return nil, err
	}

	var orgID *uuid.UUID
	if input.OrganizationAccountID != "" {
		org, err := r.resolveEntity(ctx, input.OrganizationAccountID)
		if err != nil {
			return nil, err
		}
		if org.Kind != enums.EntityKindOrganization {
			return nil, apperrors.New(apperrors.CodeValidation, "organization_account_id does not reference an organization")
		}
		orgID = &org.ID
	}

	var subjectRef *string
	if input.SubjectRef != "" {
		ref := input.SubjectRef
		subjectRef = &ref
	}

	event := &models.DocumentationEvent{
		Kind:           input.Kind,
		ContentHash:    contentHash,
		OccurredAt:     input.OccurredAt.UTC(),
		ActorEntityID:  actor.ID,
		OrganizationID: orgID,
		SubjectRef:     subjectRef,
		IntegrationID:  input.IntegrationID,
		Metadata:       input.Metadata,
	}
	attestation := &models.Attestation{
		SignerKeyRef: input.SignerKeyRef,
		Signature:    input.Signature,
		Status:       enums.AttestationStatusPending,
	}

	err = r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := r.events.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}
		attestation.EventID = event.ID
		return r.attestations.WithTx(tx).Create(ctx, attestation)
	})
	if err != nil {
		// A concurrent delivery of the same event can slip past the fast
		// path; the unique index decides the winner and the loser adopts
		// the stored row.
		if dbpkg.IsUniqueViolation(err, "idx_documentation_events_content_hash") {
			existing, findErr := r.events.FindByContentHash(ctx, contentHash)
			if findErr != nil {
				return nil, findErr
			}
			return r.duplicateResult(ctx, existing)
		}
		return nil, err
	}

	return &RecordResult{Event: event, Attestation: attestation, Created: true}, nil
}

func (r *recorder) duplicateResult(ctx context.Context, event *models.DocumentationEvent) (*RecordResult, error) {
	attestation, err := r.attestations.FindByEventID(ctx, event.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &RecordResult{Event: event, Attestation: attestation, Created: false}, nil
}

func (r *recorder) resolveEntity(ctx context.Context, accountID string) (*models.Entity, error) {
	entity, err := r.entities.FindByAccountID(ctx, entities.NormalizeAccountID(accountID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "account is not registered").
				WithDetails(map[string]string{"account_id": accountID})
		}
		return nil, err
	}
	return entity, nil
}

func (r *recorder) validate(input RecordInput) error {
	if !input.Kind.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "unknown event kind").
			WithDetails(map[string]string{"kind": string(input.Kind)})
	}
	if input.ActorAccountID == "" {
		return apperrors.New(apperrors.CodeValidation, "actor_account_id is required")
	}
	if input.IntegrationID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "integration id is required")
	}
	if input.OccurredAt.IsZero() {
		return apperrors.New(apperrors.CodeValidation, "timestamp is required")
	}

	now := r.now()
	if input.OccurredAt.After(now.Add(r.cfg.MaxClockSkew)) {
		return apperrors.New(apperrors.CodeValidation, "event timestamp is in the future")
	}
	if r.cfg.MaxEventAge > 0 && input.OccurredAt.Before(now.Add(-r.cfg.MaxEventAge)) {
		return apperrors.New(apperrors.CodeValidation, "event timestamp is older than the accepted window")
	}
	return nil
}
