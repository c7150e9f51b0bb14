package audit

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/enums"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/outbox"
	"github.com/attesthealth/attest-backend/pkg/outbox/payloads"
)

// Emitter queues a domain event within the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service translates pipeline milestones into audit outbox events. Every
// write rides the caller's transaction, so the audit trail commits with the
// state it describes.
type Service struct {
	emitter Emitter
	logg    *logger.Logger
}

// NewService wires an audit service over the outbox emitter.
func NewService(emitter Emitter, logg *logger.Logger) (*Service, error) {
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &Service{emitter: emitter, logg: logg}, nil
}

// EventRecorded reports a new documentation event landing in storage.
func (s *Service) EventRecorded(ctx context.Context, tx *gorm.DB, payload payloads.DocumentationEventRecorded) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDocumentationRecorded,
		AggregateType: enums.AggregateDocumentationEvent,
		AggregateID:   payload.EventID,
		Data:          payload,
	})
}

// DuplicateAbsorbed reports a redelivery that produced no new state.
func (s *Service) DuplicateAbsorbed(ctx context.Context, tx *gorm.DB, payload payloads.DuplicateDeliveryAbsorbed) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDuplicateAbsorbed,
		AggregateType: enums.AggregateDocumentationEvent,
		AggregateID:   payload.EventID,
		Data:          payload,
	})
}

// RewardDistributed reports the ledger credits written for an attestation.
func (s *Service) RewardDistributed(ctx context.Context, tx *gorm.DB, payload payloads.RewardDistributed) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRewardDistributed,
		AggregateType: enums.AggregateAttestation,
		AggregateID:   payload.AttestationID,
		Data:          payload,
	})
}

// AttestationConfirmed reports an attestation reaching its terminal state.
func (s *Service) AttestationConfirmed(ctx context.Context, tx *gorm.DB, payload payloads.AttestationConfirmed) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAttestationConfirmed,
		AggregateType: enums.AggregateAttestation,
		AggregateID:   payload.AttestationID,
		Data:          payload,
	})
}

// DailyCapReached reports an actor hitting their policy cap.
func (s *Service) DailyCapReached(ctx context.Context, tx *gorm.DB, payload payloads.DailyCapReached) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDailyCapReached,
		AggregateType: enums.AggregateAttestation,
		AggregateID:   payload.AttestationID,
		Data:          payload,
	})
}

// TreasuryRoutingFailed alerts that the fee carve-out could not be credited.
func (s *Service) TreasuryRoutingFailed(ctx context.Context, tx *gorm.DB, payload payloads.TreasuryRoutingFailed) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTreasuryRoutingFailed,
		AggregateType: enums.AggregateAttestation,
		AggregateID:   payload.AttestationID,
		Data:          payload,
	})
}

// EntityRegistered reports a new entity joining the network.
func (s *Service) EntityRegistered(ctx context.Context, tx *gorm.DB, payload payloads.EntityRegistered) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEntityRegistered,
		AggregateType: enums.AggregateEntity,
		AggregateID:   payload.EntityID,
		Data:          payload,
	})
}

// OrganizationLinked reports an entity being attached to an organization.
func (s *Service) OrganizationLinked(ctx context.Context, tx *gorm.DB, payload payloads.EntityOrganizationLinked) error {
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEntityOrganizationLink,
		AggregateType: enums.AggregateEntity,
		AggregateID:   payload.EntityID,
		Data:          payload,
	})
}
