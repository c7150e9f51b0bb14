package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/attesthealth/attest-backend/pkg/enums"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/outbox"
	"github.com/attesthealth/attest-backend/pkg/outbox/payloads"
	"github.com/attesthealth/attest-backend/pkg/outbox/registry"
)

const archiveConsumerName = "audit-archive"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyGuard interface {
	CheckAndMarkProcessed(ctx context.Context, scope, key string) (bool, error)
	Delete(ctx context.Context, scope, key string) error
}

// Consumer archives the audit event stream into BigQuery. Every payload is
// decoded against its registered schema before it is written, so a malformed
// event surfaces here instead of at query time.
type Consumer struct {
	subscription *pubsub.Subscriber
	archive      tableInserter
	table        string
	decoders     *registry.DecoderRegistry
	guard        idempotencyGuard
	logg         *logger.Logger
}

// NewConsumer builds an audit archive consumer. The subscription may be nil
// in tests that drive Process directly.
func NewConsumer(subscription *pubsub.Subscriber, archive tableInserter, table string, guard idempotencyGuard, logg *logger.Logger) (*Consumer, error) {
	if archive == nil {
		return nil, fmt.Errorf("archive writer required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("archive table name required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		archive:      archive,
		table:        strings.TrimSpace(table),
		decoders:     newDecoderRegistry(),
		guard:        guard,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("audit subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		eventType := enums.OutboxEventType(msg.Attributes["event_type"])
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"message_id": msg.ID,
			"event_type": eventType,
		})

		var envelope outbox.PayloadEnvelope
		if err := json.Unmarshal(msg.Data, &envelope); err != nil {
			// Undecodable messages never become processable; drop them.
			c.logg.Error(logCtx, "failed to decode envelope", err)
			msg.Ack()
			return
		}

		if err := c.Process(ctx, eventType, envelope); err != nil {
			c.logg.Error(logCtx, "audit archive failed", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Process validates and archives one audit event.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if !c.decoders.Registered(eventType, envelope.Version) {
		c.logg.Info(logCtx, "event not handled by audit archive")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}

	already, err := c.guard.CheckAndMarkProcessed(ctx, archiveConsumerName, envelope.EventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already archived")
		return nil
	}

	if _, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data); err != nil {
		c.logg.Error(logCtx, "audit payload failed schema check", err)
		_ = c.guard.Delete(ctx, archiveConsumerName, envelope.EventID)
		return err
	}

	row := buildRow(eventType, envelope)
	if err := c.archive.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert audit row", err)
		_ = c.guard.Delete(ctx, archiveConsumerName, envelope.EventID)
		return err
	}

	c.logg.Info(logCtx, "audit event archived")
	return nil
}

type auditEventRow struct {
	EventID    string             `bigquery:"event_id"`
	EventType  string             `bigquery:"event_type"`
	Version    int                `bigquery:"version"`
	OccurredAt time.Time          `bigquery:"occurred_at"`
	Payload    cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) *auditEventRow {
	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Data)
	}
	return &auditEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		Version:    envelope.Version,
		OccurredAt: envelope.OccurredAt,
		Payload:    payloadJSON,
	}
}

func newDecoderRegistry() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	register := func(eventType enums.OutboxEventType, factory func() interface{}) {
		reg.Register(eventType, 1, func(payload json.RawMessage) (interface{}, error) {
			target := factory()
			if err := json.Unmarshal(payload, target); err != nil {
				return nil, err
			}
			return target, nil
		})
	}

	register(enums.EventDocumentationRecorded, func() interface{} { return &payloads.DocumentationEventRecorded{} })
	register(enums.EventDuplicateAbsorbed, func() interface{} { return &payloads.DuplicateDeliveryAbsorbed{} })
	register(enums.EventRewardDistributed, func() interface{} { return &payloads.RewardDistributed{} })
	register(enums.EventAttestationConfirmed, func() interface{} { return &payloads.AttestationConfirmed{} })
	register(enums.EventDailyCapReached, func() interface{} { return &payloads.DailyCapReached{} })
	register(enums.EventTreasuryRoutingFailed, func() interface{} { return &payloads.TreasuryRoutingFailed{} })
	register(enums.EventEntityRegistered, func() interface{} { return &payloads.EntityRegistered{} })
	register(enums.EventEntityOrganizationLink, func() interface{} { return &payloads.EntityOrganizationLinked{} })
	return reg
}
