package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/internal/attestations"
	"github.com/attesthealth/attest-backend/internal/audit"
	"github.com/attesthealth/attest-backend/internal/entities"
	"github.com/attesthealth/attest-backend/internal/ledger"
	"github.com/attesthealth/attest-backend/internal/policies"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
	"github.com/attesthealth/attest-backend/pkg/metrics"
	"github.com/attesthealth/attest-backend/pkg/outbox/payloads"
)

// Outcome is the terminal state of one distribution attempt.
type Outcome string

const (
	// OutcomeDistributed means ledger entries were written and the
	// attestation confirmed.
	OutcomeDistributed Outcome = "distributed"
	// OutcomeCapped means the actor's daily cap blocked the payout; the
	// attestation stays pending for a later retry.
	OutcomeCapped Outcome = "capped"
	// OutcomeAlreadyDistributed means an earlier attempt already paid this
	// attestation out.
	OutcomeAlreadyDistributed Outcome = "already_distributed"
	// OutcomeNoPolicy means no active reward policy covers the event kind.
	// The event and its pending attestation stay recorded; nothing is minted.
	OutcomeNoPolicy Outcome = "no_policy"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Distributor turns a recorded documentation event with a pending
// attestation into confirmed ledger credits.
type Distributor interface {
	Distribute(ctx context.Context, event *models.DocumentationEvent, attestation *models.Attestation) (*Result, error)
}

// Result reports what Distribute did.
type Result struct {
	Outcome    Outcome
	BaseReward decimal.Decimal
	NetworkFee decimal.Decimal
	Entries    []models.RewardLedgerEntry
}

type distributor struct {
	tx           TxRunner
	ledger       ledger.Repository
	attestations attestations.Repository
	entities     entities.Repository
	policies     policies.Resolver
	audit        *audit.Service
	metrics      *metrics.PipelineMetrics
	now          func() time.Time
}

// NewDistributor wires a reward distributor. metrics may be nil.
func NewDistributor(
	tx TxRunner,
	ledgerRepo ledger.Repository,
	atts attestations.Repository,
	ents entities.Repository,
	resolver policies.Resolver,
	auditSvc *audit.Service,
	pipelineMetrics *metrics.PipelineMetrics,
) (Distributor, error) {
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if ledgerRepo == nil {
		return nil, errors.New("ledger repository required")
	}
	if atts == nil {
		return nil, errors.New("attestation repository required")
	}
	if ents == nil {
		return nil, errors.New("entity repository required")
	}
	if resolver == nil {
		return nil, errors.New("policy resolver required")
	}
	if auditSvc == nil {
		return nil, errors.New("audit service required")
	}
	return &distributor{
		tx:           tx,
		ledger:       ledgerRepo,
		attestations: atts,
		entities:     ents,
		policies:     resolver,
		audit:        auditSvc,
		metrics:      pipelineMetrics,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (d *distributor) Distribute(ctx context.Context, event *models.DocumentationEvent, attestation *models.Attestation) (*Result, error) {
	if event == nil || attestation == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "event and attestation are required")
	}
	if attestation.EventID != event.ID {
		return nil, apperrors.New(apperrors.CodeValidation, "attestation does not belong to event")
	}

	// Ledger entries are the ground truth for whether a payout happened;
	// the attestation status alone can lag a crashed attempt.
	exists, err := d.ledger.ExistsForAttestation(ctx, attestation.ID)
	if err != nil {
		return nil, err
	}
	if exists || attestation.Status != enums.AttestationStatusPending {
		return &Result{Outcome: OutcomeAlreadyDistributed}, nil
	}

	policy, err := d.policies.ActivePolicy(ctx, event.Kind)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		// Recording without rewarding is a success: the delivery is kept and
		// a later policy activation lets the retry job pay it out.
		return &Result{Outcome: OutcomeNoPolicy}, nil
	}
	feeSetting, err := d.policies.NetworkFee(ctx)
	if err != nil {
		return nil, err
	}

	bonusRecipient, err := d.resolveBonusRecipient(ctx, event)
	if err != nil {
		return nil, err
	}
	patient, err := d.resolvePatient(ctx, event)
	if err != nil {
		return nil, err
	}

	breakdown := ComputeBreakdown(BreakdownInput{
		BaseReward:               policy.BaseReward,
		FeePercent:               feeSetting.FeePercent,
		ProviderSplitPercent:     policy.ProviderSplitPercent,
		OrganizationSplitPercent: policy.OrganizationSplitPercent,
		PatientSplitPercent:      policy.PatientSplitPercent,
		BonusRecipientResolved:   bonusRecipient != nil,
	})

	capped, accrued, err := d.capReached(ctx, event, policy, breakdown)
	if err != nil {
		return nil, err
	}
	if capped {
		err := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return d.audit.DailyCapReached(ctx, tx, payloads.DailyCapReached{
				AttestationID: attestation.ID,
				ActorEntityID: event.ActorEntityID,
				Kind:          event.Kind,
				DailyCap:      *policy.DailyCapPerActor,
				AccruedToday:  accrued,
			})
		})
		if err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeCapped, BaseReward: policy.BaseReward}, nil
	}

	treasury, err := d.resolveTreasury(ctx, attestation, feeSetting)
	if err != nil {
		return nil, err
	}

	now := d.now()
	entries := d.buildEntries(event, attestation, breakdown, treasury, bonusRecipient, patient, now)

	err = d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := d.ledger.WithTx(tx).CreateBatch(ctx, entries); err != nil {
			return err
		}
		if err := d.attestations.WithTx(tx).Confirm(ctx, attestation.ID, now); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeStateConflict, "attestation is no longer pending")
			}
			return err
		}
		if err := d.audit.RewardDistributed(ctx, tx, payloads.RewardDistributed{
			AttestationID: attestation.ID,
			EventID:       event.ID,
			BaseReward:    policy.BaseReward,
			NetworkFee:    breakdown.NetworkFee,
			EntryCount:    len(entries),
		}); err != nil {
			return err
		}
		return d.audit.AttestationConfirmed(ctx, tx, payloads.AttestationConfirmed{
			AttestationID: attestation.ID,
			EventID:       event.ID,
			ConfirmedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	attestation.Status = enums.AttestationStatusConfirmed
	attestation.ConfirmedAt = &now
	for _, entry := range entries {
		amount, _ := entry.Amount.Float64()
		d.metrics.ObserveDistribution(entry.RecipientKind.String(), amount)
	}

	return &Result{
		Outcome:    OutcomeDistributed,
		BaseReward: policy.BaseReward,
		NetworkFee: breakdown.NetworkFee,
		Entries:    entries,
	}, nil
}

// capReached checks the actor's accrual since midnight UTC against the
// policy cap. Pending and confirmed credits both count toward the cap.
func (d *distributor) capReached(ctx context.Context, event *models.DocumentationEvent, policy *models.RewardPolicy, breakdown Breakdown) (bool, decimal.Decimal, error) {
	if policy.DailyCapPerActor == nil {
		return false, decimal.Zero, nil
	}
	now := d.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	accrued, err := d.ledger.SumForRecipientSince(ctx, event.ActorEntityID, dayStart)
	if err != nil {
		return false, decimal.Zero, err
	}
	return accrued.Add(breakdown.ProviderShare).GreaterThan(*policy.DailyCapPerActor), accrued, nil
}

// resolveBonusRecipient looks up the organization named by the event's
// routing metadata. A missing, unregistered, or non-organization account
// simply means no bonus is carved out.
func (d *distributor) resolveBonusRecipient(ctx context.Context, event *models.DocumentationEvent) (*models.Entity, error) {
	account := d.policies.BonusRecipientAccount(event.Metadata)
	if account == "" {
		return nil, nil
	}
	entity, err := d.entities.FindByAccountID(ctx, entities.NormalizeAccountID(account))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if entity.Kind != enums.EntityKindOrganization {
		return nil, nil
	}
	return entity, nil
}

// resolvePatient looks up the patient named by the event metadata. The
// patient share is only minted for a registered patient entity.
func (d *distributor) resolvePatient(ctx context.Context, event *models.DocumentationEvent) (*models.Entity, error) {
	account := d.policies.PatientAccount(event.Metadata)
	if account == "" {
		return nil, nil
	}
	entity, err := d.entities.FindByAccountID(ctx, entities.NormalizeAccountID(account))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if entity.Kind != enums.EntityKindPatient {
		return nil, nil
	}
	return entity, nil
}

// resolveTreasury finds the configured treasury entity. Failure here is an
// operator problem, not a caller problem: the routing failure is audited and
// the attestation stays pending so a retry can succeed once fixed.
func (d *distributor) resolveTreasury(ctx context.Context, attestation *models.Attestation, feeSetting *models.NetworkFeeSetting) (*models.Entity, error) {
	entity, err := d.entities.FindByAccountID(ctx, entities.NormalizeAccountID(feeSetting.TreasuryAccountID))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	reason := ""
	switch {
	case err != nil:
		reason = "treasury account is not registered"
	case entity.Kind != enums.EntityKindTreasury:
		reason = "treasury account is not a treasury entity"
	default:
		return entity, nil
	}

	auditErr := d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return d.audit.TreasuryRoutingFailed(ctx, tx, payloads.TreasuryRoutingFailed{
			AttestationID:     attestation.ID,
			TreasuryAccountID: feeSetting.TreasuryAccountID,
			Reason:            reason,
		})
	})
	if auditErr != nil {
		return nil, auditErr
	}
	return nil, apperrors.New(apperrors.CodeStateConflict, reason).
		WithDetails(map[string]string{"treasury_account_id": feeSetting.TreasuryAccountID})
}

// buildEntries assembles the confirmed ledger credits for one attestation.
// Shares whose recipient is absent, and zero-value shares, are not minted.
func (d *distributor) buildEntries(
	event *models.DocumentationEvent,
	attestation *models.Attestation,
	breakdown Breakdown,
	treasury, bonusRecipient, patient *models.Entity,
	confirmedAt time.Time,
) []models.RewardLedgerEntry {
	entries := make([]models.RewardLedgerEntry, 0, 5)
	add := func(recipient uuid.UUID, kind enums.RecipientKind, amount decimal.Decimal) {
		if !amount.IsPositive() {
			return
		}
		entries = append(entries, models.RewardLedgerEntry{
			AttestationID:     attestation.ID,
			RecipientEntityID: recipient,
			RecipientKind:     kind,
			Amount:            amount,
			Status:            enums.LedgerEntryStatusConfirmed,
			ConfirmedAt:       &confirmedAt,
		})
	}

	add(event.ActorEntityID, enums.RecipientKindProvider, breakdown.ProviderShare)
	if event.OrganizationID != nil {
		add(*event.OrganizationID, enums.RecipientKindOrganization, breakdown.OrganizationShare)
	}
	if patient != nil {
		add(patient.ID, enums.RecipientKindPatient, breakdown.PatientShare)
	}
	add(treasury.ID, enums.RecipientKindTreasury, breakdown.TreasuryAmount)
	if bonusRecipient != nil {
		add(bonusRecipient.ID, enums.RecipientKindOrganization, breakdown.OrganizationBonus)
	}
	return entries
}
