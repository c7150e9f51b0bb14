package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/outbox/registry"
)

// The publisher drains the transactional outbox into the audit topic. Rows
// are claimed in batches inside one transaction; rows that can never publish
// move to the DLQ, transient failures back off and retry up to maxAttempts.

const (
	fallbackBatchSize   = 50
	fallbackPollMs      = 500
	fallbackMaxAttempts = 10
	publishTimeout      = 15 * time.Second
	backoffCeiling      = 10 * time.Second
	jitterSpread        = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher is the single operation the loop needs from a Pub/Sub topic.
type topicPublisher interface {
	Send(ctx context.Context, data []byte, attrs map[string]string) error
}

type PublisherParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       txRunner
	PubSub   topicClient
	Outbox   outboxStore
	DLQ      dlqStore
	Registry eventResolver
	// OpenTopic overrides topic construction; tests inject fakes here.
	OpenTopic func(topic string) topicPublisher
}

// Publisher is the outbox drain loop.
type Publisher struct {
	logg        *logger.Logger
	db          txRunner
	pubsub      topicClient
	outbox      outboxStore
	dlq         dlqStore
	registry    eventResolver
	openTopic   func(topic string) topicPublisher
	topics      map[string]topicPublisher
	batchSize   int
	maxAttempts int
	poll        time.Duration
	jitter      *rand.Rand
}

func NewPublisher(params PublisherParams) (*Publisher, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Outbox == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	p := &Publisher{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		outbox:      params.Outbox,
		dlq:         params.DLQ,
		registry:    params.Registry,
		openTopic:   params.OpenTopic,
		topics:      map[string]topicPublisher{},
		batchSize:   params.Config.Outbox.BatchSize,
		maxAttempts: params.Config.Outbox.MaxAttempts,
		poll:        time.Duration(params.Config.Outbox.PollIntervalMS) * time.Millisecond,
		jitter:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if p.batchSize <= 0 {
		p.batchSize = fallbackBatchSize
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = fallbackMaxAttempts
	}
	if p.poll <= 0 {
		p.poll = fallbackPollMs * time.Millisecond
	}
	if p.openTopic == nil {
		p.openTopic = p.gcpTopic
	}
	return p, nil
}

// Run polls until the context is canceled. An empty fetch idles for the poll
// interval; errors back off exponentially up to backoffCeiling.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := p.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	backoff := p.poll
	for {
		if err := ctx.Err(); err != nil {
			p.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		drained, err := p.drainOnce(ctx)
		if err != nil {
			p.logg.Error(ctx, "outbox drain failed", err)
			backoff = min(backoff*2, backoffCeiling)
			if pauseErr := p.pause(ctx, backoff); pauseErr != nil {
				return pauseErr
			}
			continue
		}

		backoff = p.poll
		if drained {
			continue
		}
		if err := p.pause(ctx, p.poll); err != nil {
			return err
		}
	}
}

// drainOnce claims one batch and reports whether any rows were found.
func (p *Publisher) drainOnce(ctx context.Context) (bool, error) {
	found := false
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := p.outbox.FetchUnpublishedForPublish(tx, p.batchSize, p.maxAttempts)
		if err != nil {
			return err
		}
		found = len(rows) > 0
		for _, row := range rows {
			if err := p.dispatch(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return found, err
}

// dispatch publishes one row or records why it could not be published. Only
// bookkeeping failures abort the batch; publish failures are per-row.
func (p *Publisher) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	resolved, err := p.registry.Resolve(row)
	if err != nil {
		return p.park(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}
	topic := resolved.Descriptor.Topic

	if err := p.send(ctx, topic, row, resolved); err != nil {
		var terminal registry.NonRetryableError
		if errors.As(err, &terminal) {
			return p.park(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
		}
		if row.AttemptCount+1 >= p.maxAttempts {
			return p.park(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts,
				fmt.Errorf("max publish attempts reached: %w", err))
		}
		logCtx := p.logg.WithField(p.rowContext(ctx, row, topic), "error", err.Error())
		p.logg.Warn(logCtx, "outbox publish failed; will retry")
		if markErr := p.outbox.MarkFailedTx(tx, row.ID, err); markErr != nil {
			return fmt.Errorf("mark failure %s: %w", row.ID, markErr)
		}
		return nil
	}

	if markErr := p.outbox.MarkPublishedTx(tx, row.ID); markErr != nil {
		return fmt.Errorf("mark published %s: %w", row.ID, markErr)
	}
	p.logg.Info(p.rowContext(ctx, row, topic), "outbox row published")
	return nil
}

// park moves a row that will never publish to the DLQ and marks it terminal.
func (p *Publisher) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	logCtx := p.logg.WithField(p.rowContext(ctx, row, ""), "error_reason", string(reason))
	logCtx = p.logg.WithField(logCtx, "error", cause.Error())
	p.logg.Warn(logCtx, "outbox row will not be retried")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := p.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := p.outbox.MarkTerminalTx(tx, row.ID, cause, p.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, topic string, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	pub, ok := p.topics[topic]
	if !ok {
		pub = p.openTopic(topic)
		if pub == nil {
			return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
		}
		p.topics[topic] = pub
	}

	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
	}
	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return pub.Send(sendCtx, row.Payload, attrs)
}

func (p *Publisher) rowContext(ctx context.Context, row models.OutboxEvent, topic string) context.Context {
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return p.logg.WithFields(ctx, fields)
}

// pause sleeps for d plus jitter, or returns early on cancellation.
func (p *Publisher) pause(ctx context.Context, d time.Duration) error {
	d += time.Duration(p.jitter.Int63n(int64(jitterSpread)))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Publisher) gcpTopic(topic string) topicPublisher {
	pub := p.pubsub.Publisher(topic)
	if pub == nil {
		return nil
	}
	return gcpTopic{pub: pub}
}

type gcpTopic struct {
	pub *gcppubsub.Publisher
}

func (t gcpTopic) Send(ctx context.Context, data []byte, attrs map[string]string) error {
	result := t.pub.Publish(ctx, &gcppubsub.Message{Data: data, Attributes: attrs})
	_, err := result.Get(ctx)
	return err
}
