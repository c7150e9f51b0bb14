package webhookdocs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/internal/audit"
	"github.com/attesthealth/attest-backend/internal/events"
	"github.com/attesthealth/attest-backend/internal/rewards"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/metrics"
	"github.com/attesthealth/attest-backend/pkg/outbox/payloads"
)

// idempotencyScope namespaces content-hash guard keys in Redis.
const idempotencyScope = "documentation"

type deliveryGuard interface {
	CheckAndMarkProcessed(ctx context.Context, scope, key string) (bool, error)
	Delete(ctx context.Context, scope, key string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Delivery is one raw webhook delivery as received on the wire.
type Delivery struct {
	IntegrationName string
	Signature       string
	Payload         []byte
}

// deliveryPayload is the documented webhook body.
type deliveryPayload struct {
	EventKind             enums.EventKind `json:"event_kind"`
	Timestamp             time.Time       `json:"timestamp"`
	ActorAccountID        string          `json:"actor_account_id"`
	SubjectID             string          `json:"subject_id"`
	OrganizationAccountID string          `json:"organization_account_id"`
	Metadata              json.RawMessage `json:"metadata"`
}

// Result reports how one delivery was handled. Duplicate deliveries are a
// success, never an error.
type Result struct {
	EventID    uuid.UUID
	Duplicate  bool
	Outcome    rewards.Outcome
	BaseReward decimal.Decimal
	NetworkFee decimal.Decimal
}

type ServiceParams struct {
	Integrations IntegrationRepository
	Guard        deliveryGuard
	Recorder     events.Recorder
	Events       events.Repository
	Distributor  rewards.Distributor
	Audit        *audit.Service
	Tx           txRunner
	Metrics      *metrics.PipelineMetrics
	Logger       *logger.Logger
}

// Service runs the full ingestion pipeline for one delivery: verify, parse,
// dedupe, record, distribute.
type Service struct {
	integrations IntegrationRepository
	guard        deliveryGuard
	recorder     events.Recorder
	events       events.Repository
	distributor  rewards.Distributor
	audit        *audit.Service
	tx           txRunner
	metrics      *metrics.PipelineMetrics
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Integrations == nil {
		return nil, errors.New("integration repository required")
	}
	if params.Guard == nil {
		return nil, errors.New("delivery guard required")
	}
	if params.Recorder == nil {
		return nil, errors.New("event recorder required")
	}
	if params.Events == nil {
		return nil, errors.New("event repository required")
	}
	if params.Distributor == nil {
		return nil, errors.New("reward distributor required")
	}
	if params.Audit == nil {
		return nil, errors.New("audit service required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner required")
	}
	return &Service{
		integrations: params.Integrations,
		guard:        params.Guard,
		recorder:     params.Recorder,
		events:       params.Events,
		distributor:  params.Distributor,
		audit:        params.Audit,
		tx:           params.Tx,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// Handle processes one raw delivery end to end.
func (s *Service) Handle(ctx context.Context, delivery Delivery) (*Result, error) {
	started := time.Now()
	result, err := s.handle(ctx, delivery)

	kind := "unknown"
	var parsed deliveryPayload
	if jsonErr := json.Unmarshal(delivery.Payload, &parsed); jsonErr == nil && parsed.EventKind != "" {
		kind = string(parsed.EventKind)
	}
	s.metrics.ObserveHandleDuration(kind, time.Since(started))
	s.metrics.IncReceived(kind, s.outcomeLabel(result, err))

	return result, err
}

func (s *Service) outcomeLabel(result *Result, err error) string {
	if err != nil {
		if appErr := apperrors.As(err); appErr != nil && apperrors.MetadataFor(appErr.Code()).HTTPStatus < 500 {
			return metrics.OutcomeRejected
		}
		return metrics.OutcomeFailed
	}
	switch {
	case result.Duplicate:
		return metrics.OutcomeDuplicate
	case result.Outcome == rewards.OutcomeCapped:
		return metrics.OutcomeCapped
	default:
		return metrics.OutcomeRecorded
	}
}

func (s *Service) handle(ctx context.Context, delivery Delivery) (*Result, error) {
	integration, err := s.verify(ctx, delivery)
	if err != nil {
		return nil, err
	}

	var payload deliveryPayload
	if err := json.Unmarshal(delivery.Payload, &payload); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "malformed delivery body")
	}

	input := events.RecordInput{
		Kind:                  payload.EventKind,
		OccurredAt:            payload.Timestamp,
		ActorAccountID:        payload.ActorAccountID,
		OrganizationAccountID: payload.OrganizationAccountID,
		SubjectRef:            payload.SubjectID,
		IntegrationID:         integration.ID,
		SignerKeyRef:          integration.Name,
		Signature:             delivery.Signature,
		Metadata:              payload.Metadata,
	}

	contentHash := events.ContentHash(payload.EventKind, payload.Timestamp, payload.ActorAccountID, payload.SubjectID)

	// Redis fast path for hot redeliveries. The content-hash unique index is
	// the source of truth; a guard miss just falls through to the recorder.
	already, err := s.guard.CheckAndMarkProcessed(ctx, idempotencyScope, contentHash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "idempotency check")
	}
	if already {
		if stored, findErr := s.events.FindByContentHash(ctx, contentHash); findErr == nil {
			return s.duplicate(ctx, stored, integration)
		} else if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return nil, findErr
		}
	}

	recorded, err := s.recorder.Record(ctx, input)
	if err != nil {
		s.unguard(ctx, contentHash)
		return nil, err
	}
	if !recorded.Created {
		return s.duplicate(ctx, recorded.Event, integration)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.audit.EventRecorded(ctx, tx, payloads.DocumentationEventRecorded{
			EventID:       recorded.Event.ID,
			Kind:          recorded.Event.Kind,
			ContentHash:   recorded.Event.ContentHash,
			ActorEntityID: recorded.Event.ActorEntityID,
			IntegrationID: integration.ID,
			OccurredAt:    recorded.Event.OccurredAt,
		})
	})
	if err != nil {
		s.unguard(ctx, contentHash)
		return nil, err
	}

	distribution, err := s.distributor.Distribute(ctx, recorded.Event, recorded.Attestation)
	if err != nil {
		// The event is stored; the retry worker picks the pending
		// attestation up. The guard is released so a redelivery can also
		// land on the duplicate path instead of erroring.
		s.unguard(ctx, contentHash)
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithEventID(ctx, recorded.Event.ID.String())
		logCtx = s.logg.WithIntegration(logCtx, integration.Name)
		s.logg.Info(logCtx, "documentation event processed")
	}

	return &Result{
		EventID:    recorded.Event.ID,
		Outcome:    distribution.Outcome,
		BaseReward: distribution.BaseReward,
		NetworkFee: distribution.NetworkFee,
	}, nil
}

func (s *Service) verify(ctx context.Context, delivery Delivery) (*models.WebhookIntegration, error) {
	if delivery.IntegrationName == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "integration header missing")
	}
	if delivery.Signature == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "signature header missing")
	}
	integration, err := s.integrations.FindByName(ctx, delivery.IntegrationName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "unknown integration")
		}
		return nil, err
	}
	if !integration.Active {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "integration is inactive")
	}
	if !ValidSignature(delivery.Payload, integration.Secret, delivery.Signature) {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid signature")
	}
	return integration, nil
}

func (s *Service) duplicate(ctx context.Context, event *models.DocumentationEvent, integration *models.WebhookIntegration) (*Result, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.audit.DuplicateAbsorbed(ctx, tx, payloads.DuplicateDeliveryAbsorbed{
			EventID:       event.ID,
			ContentHash:   event.ContentHash,
			IntegrationID: integration.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncDuplicate()
	return &Result{EventID: event.ID, Duplicate: true}, nil
}

func (s *Service) unguard(ctx context.Context, contentHash string) {
	if err := s.guard.Delete(ctx, idempotencyScope, contentHash); err != nil && s.logg != nil {
		s.logg.Error(ctx, "release idempotency guard", err)
	}
}
