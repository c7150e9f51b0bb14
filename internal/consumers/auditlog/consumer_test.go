package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/attesthealth/attest-backend/pkg/enums"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/outbox"
	"github.com/attesthealth/attest-backend/pkg/outbox/payloads"
)

type fakeInserter struct {
	rows []any
	err  error
}

func (f *fakeInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeGuard struct {
	marked  map[string]bool
	deleted []string
	err     error
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{marked: map[string]bool{}}
}

func (f *fakeGuard) CheckAndMarkProcessed(ctx context.Context, scope, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	full := fmt.Sprintf("%s:%s", scope, key)
	if f.marked[full] {
		return true, nil
	}
	f.marked[full] = true
	return false, nil
}

func (f *fakeGuard) Delete(ctx context.Context, scope, key string) error {
	full := fmt.Sprintf("%s:%s", scope, key)
	delete(f.marked, full)
	f.deleted = append(f.deleted, full)
	return nil
}

func newTestConsumer(t *testing.T, archive tableInserter, guard idempotencyGuard) *Consumer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "audit-test", Output: io.Discard})
	consumer, err := NewConsumer(nil, archive, "audit_events", guard, logg)
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	return consumer
}

func distributionEnvelope(t *testing.T) outbox.PayloadEnvelope {
	t.Helper()
	data, err := json.Marshal(payloads.RewardDistributed{
		AttestationID: uuid.New(),
		EventID:       uuid.New(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestProcessArchivesEvent(t *testing.T) {
	archive := &fakeInserter{}
	guard := newFakeGuard()
	consumer := newTestConsumer(t, archive, guard)
	envelope := distributionEnvelope(t)

	if err := consumer.Process(context.Background(), enums.EventRewardDistributed, envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(archive.rows) != 1 {
		t.Fatalf("expected 1 archived row, got %d", len(archive.rows))
	}
	row, ok := archive.rows[0].(*auditEventRow)
	if !ok {
		t.Fatalf("unexpected row type %T", archive.rows[0])
	}
	if row.EventID != envelope.EventID {
		t.Fatalf("unexpected event id %q", row.EventID)
	}
	if row.EventType != string(enums.EventRewardDistributed) {
		t.Fatalf("unexpected event type %q", row.EventType)
	}
	if !row.Payload.Valid {
		t.Fatal("expected payload to be archived")
	}
}

func TestProcessIsIdempotentPerEventID(t *testing.T) {
	archive := &fakeInserter{}
	guard := newFakeGuard()
	consumer := newTestConsumer(t, archive, guard)
	envelope := distributionEnvelope(t)

	for i := 0; i < 2; i++ {
		if err := consumer.Process(context.Background(), enums.EventRewardDistributed, envelope); err != nil {
			t.Fatalf("Process attempt %d: %v", i, err)
		}
	}
	if len(archive.rows) != 1 {
		t.Fatalf("expected 1 archived row after redelivery, got %d", len(archive.rows))
	}
}

func TestProcessSkipsUnknownEventTypes(t *testing.T) {
	archive := &fakeInserter{}
	guard := newFakeGuard()
	consumer := newTestConsumer(t, archive, guard)
	envelope := distributionEnvelope(t)

	if err := consumer.Process(context.Background(), enums.OutboxEventType("mystery.event"), envelope); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(archive.rows) != 0 {
		t.Fatal("unknown event types must not be archived")
	}
	if len(guard.marked) != 0 {
		t.Fatal("unknown event types must not consume guard keys")
	}
}

func TestProcessReleasesGuardOnInsertFailure(t *testing.T) {
	archive := &fakeInserter{err: errors.New("bigquery unavailable")}
	guard := newFakeGuard()
	consumer := newTestConsumer(t, archive, guard)
	envelope := distributionEnvelope(t)

	if err := consumer.Process(context.Background(), enums.EventRewardDistributed, envelope); err == nil {
		t.Fatal("expected insert failure to surface")
	}
	if len(guard.deleted) != 1 {
		t.Fatal("guard must be released so the redelivery can retry")
	}
}

func TestProcessRejectsMalformedPayload(t *testing.T) {
	archive := &fakeInserter{}
	guard := newFakeGuard()
	consumer := newTestConsumer(t, archive, guard)
	envelope := distributionEnvelope(t)
	envelope.Data = json.RawMessage(`{"attestation_id":42}`)

	if err := consumer.Process(context.Background(), enums.EventRewardDistributed, envelope); err == nil {
		t.Fatal("expected schema check to fail")
	}
	if len(archive.rows) != 0 {
		t.Fatal("malformed payloads must not be archived")
	}
}
