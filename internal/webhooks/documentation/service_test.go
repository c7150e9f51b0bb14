package webhookdocs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
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
	"github.com/attesthealth/attest-backend/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeIntegrations struct {
	byName map[string]*models.WebhookIntegration
}

func (f *fakeIntegrations) FindByName(ctx context.Context, name string) (*models.WebhookIntegration, error) {
	if integration, ok := f.byName[name]; ok {
		return integration, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeGuard struct {
	marked  map[string]bool
	deleted []string
}

func (f *fakeGuard) CheckAndMarkProcessed(ctx context.Context, scope, key string) (bool, error) {
	id := scope + ":" + key
	if f.marked == nil {
		f.marked = map[string]bool{}
	}
	if f.marked[id] {
		return true, nil
	}
	f.marked[id] = true
	return false, nil
}

func (f *fakeGuard) Delete(ctx context.Context, scope, key string) error {
	id := scope + ":" + key
	delete(f.marked, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRecorder struct {
	calls  int
	result *events.RecordResult
	err    error
}

func (f *fakeRecorder) Record(ctx context.Context, input events.RecordInput) (*events.RecordResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEventRepo struct {
	byHash map[string]*models.DocumentationEvent
}

func (f *fakeEventRepo) WithTx(tx *gorm.DB) events.Repository { return f }

func (f *fakeEventRepo) Create(ctx context.Context, event *models.DocumentationEvent) error {
	return nil
}

func (f *fakeEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.DocumentationEvent, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEventRepo) FindByContentHash(ctx context.Context, contentHash string) (*models.DocumentationEvent, error) {
	if event, ok := f.byHash[contentHash]; ok {
		return event, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeDistributor struct {
	calls  int
	result *rewards.Result
	err    error
}

func (f *fakeDistributor) Distribute(ctx context.Context, event *models.DocumentationEvent, attestation *models.Attestation) (*rewards.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEmitter struct {
	events []outbox.DomainEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEmitter) has(eventType enums.OutboxEventType) bool {
	for _, e := range f.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

type fixture struct {
	service      *Service
	integrations *fakeIntegrations
	guard        *fakeGuard
	recorder     *fakeRecorder
	events       *fakeEventRepo
	distributor  *fakeDistributor
	emitter      *fakeEmitter
	integration  *models.WebhookIntegration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	integration := &models.WebhookIntegration{
		ID:     uuid.New(),
		Name:   "ehr-north",
		Secret: "whsec_test",
		Active: true,
	}
	event := &models.DocumentationEvent{
		ID:            uuid.New(),
		Kind:          enums.EventKindEncounterNoteSigned,
		ContentHash:   "stored-hash",
		ActorEntityID: uuid.New(),
		OccurredAt:    time.Now().UTC().Add(-time.Hour),
	}
	attestation := &models.Attestation{
		ID:      uuid.New(),
		EventID: event.ID,
		Status:  enums.AttestationStatusPending,
	}

	f := &fixture{
		integrations: &fakeIntegrations{byName: map[string]*models.WebhookIntegration{integration.Name: integration}},
		guard:        &fakeGuard{},
		recorder: &fakeRecorder{result: &events.RecordResult{
			Event:       event,
			Attestation: attestation,
			Created:     true,
		}},
		events: &fakeEventRepo{byHash: map[string]*models.DocumentationEvent{}},
		distributor: &fakeDistributor{result: &rewards.Result{
			Outcome:    rewards.OutcomeDistributed,
			BaseReward: decimal.NewFromInt(10),
			NetworkFee: decimal.RequireFromString("0.25"),
		}},
		emitter:     &fakeEmitter{},
		integration: integration,
	}

	auditSvc, err := audit.NewService(f.emitter, nil)
	if err != nil {
		t.Fatalf("audit.NewService: %v", err)
	}
	f.service, err = NewService(ServiceParams{
		Integrations: f.integrations,
		Guard:        f.guard,
		Recorder:     f.recorder,
		Events:       f.events,
		Distributor:  f.distributor,
		Audit:        auditSvc,
		Tx:           fakeTxRunner{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return f
}

func validBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event_kind":       "encounter_note_signed",
		"timestamp":        time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
		"actor_account_id": "acct_provider_1",
		"subject_id":       "visit-42",
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func (f *fixture) deliver(body []byte) (*Result, error) {
	return f.service.Handle(context.Background(), Delivery{
		IntegrationName: f.integration.Name,
		Signature:       signBody(body, f.integration.Secret),
		Payload:         body,
	})
}

func TestHandleRecordsAndDistributes(t *testing.T) {
	f := newFixture(t)

	result, err := f.deliver(validBody(t))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if result.Duplicate {
		t.Fatal("fresh delivery reported as duplicate")
	}
	if result.Outcome != rewards.OutcomeDistributed {
		t.Fatalf("outcome = %s, want distributed", result.Outcome)
	}
	if result.EventID != f.recorder.result.Event.ID {
		t.Fatal("result missing recorded event id")
	}
	if f.distributor.calls != 1 {
		t.Fatalf("distributor calls = %d, want 1", f.distributor.calls)
	}
	if !f.emitter.has(enums.EventDocumentationRecorded) {
		t.Fatalf("missing recorded audit event: %+v", f.emitter.events)
	}
	if len(f.guard.deleted) != 0 {
		t.Fatal("guard should stay marked after success")
	}
}

func TestHandleRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	body := validBody(t)

	_, err := f.service.Handle(context.Background(), Delivery{
		IntegrationName: f.integration.Name,
		Signature:       signBody(body, "wrong-secret"),
		Payload:         body,
	})
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.recorder.calls != 0 {
		t.Fatal("nothing should be recorded on signature failure")
	}
}

func TestHandleRejectsUnknownAndInactiveIntegrations(t *testing.T) {
	f := newFixture(t)
	body := validBody(t)

	_, err := f.service.Handle(context.Background(), Delivery{
		IntegrationName: "nobody",
		Signature:       signBody(body, f.integration.Secret),
		Payload:         body,
	})
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeUnauthorized {
		t.Fatalf("unknown integration: expected unauthorized, got %v", err)
	}

	f.integration.Active = false
	_, err = f.deliver(body)
	if appErr := apperrors.As(err); appErr == nil || appErr.Code() != apperrors.CodeUnauthorized {
		t.Fatalf("inactive integration: expected unauthorized, got %v", err)
	}
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	f := newFixture(t)

	_, err := f.deliver([]byte(`{"event_kind":`))
	appErr := apperrors.As(err)
	if appErr == nil || appErr.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleAbsorbsRecorderDuplicate(t *testing.T) {
	f := newFixture(t)
	f.recorder.result.Created = false

	result, err := f.deliver(validBody(t))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("expected duplicate result")
	}
	if f.distributor.calls != 0 {
		t.Fatal("duplicates must not re-distribute")
	}
	if !f.emitter.has(enums.EventDuplicateAbsorbed) {
		t.Fatal("missing duplicate audit event")
	}
}

func TestHandleGuardHitShortCircuitsRecorder(t *testing.T) {
	f := newFixture(t)
	body := validBody(t)

	var payload deliveryPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	hash := events.ContentHash(payload.EventKind, payload.Timestamp, payload.ActorAccountID, payload.SubjectID)
	stored := &models.DocumentationEvent{ID: uuid.New(), ContentHash: hash}
	f.events.byHash[hash] = stored
	f.guard.marked = map[string]bool{fmt.Sprintf("%s:%s", idempotencyScope, hash): true}

	result, err := f.deliver(body)
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if !result.Duplicate || result.EventID != stored.ID {
		t.Fatalf("expected duplicate of stored event, got %+v", result)
	}
	if f.recorder.calls != 0 {
		t.Fatal("guard hit should skip the recorder")
	}
}

func TestHandleReleasesGuardOnFailure(t *testing.T) {
	f := newFixture(t)
	f.distributor.err = errors.New("db down")

	_, err := f.deliver(validBody(t))
	if err == nil {
		t.Fatal("expected distribution error to propagate")
	}
	if len(f.guard.deleted) != 1 {
		t.Fatalf("guard deletions = %d, want 1", len(f.guard.deleted))
	}
}
