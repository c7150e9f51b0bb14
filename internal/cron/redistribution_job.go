package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/attesthealth/attest-backend/internal/rewards"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/logger"
)

const (
	defaultMinAttestationAge = 10 * time.Minute
	defaultRetryBatchSize    = 100
)

type pendingAttestationLister interface {
	ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]models.Attestation, error)
}

type eventFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.DocumentationEvent, error)
}

// RedistributionJobParams configure the pending-attestation retry job.
type RedistributionJobParams struct {
	Logger       *logger.Logger
	Attestations pendingAttestationLister
	Events       eventFinder
	Distributor  rewards.Distributor
	MinAge       time.Duration
	BatchSize    int
}

// NewRedistributionJob builds the job that re-runs reward distribution for
// attestations stuck in pending: earlier attempts that hit a daily cap, a
// misconfigured treasury, or a transient failure after the event committed.
func NewRedistributionJob(params RedistributionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Attestations == nil {
		return nil, fmt.Errorf("attestation repository required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event repository required")
	}
	if params.Distributor == nil {
		return nil, fmt.Errorf("distributor required")
	}
	minAge := params.MinAge
	if minAge <= 0 {
		minAge = defaultMinAttestationAge
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultRetryBatchSize
	}
	return &redistributionJob{
		logg:         params.Logger,
		attestations: params.Attestations,
		events:       params.Events,
		distributor:  params.Distributor,
		minAge:       minAge,
		batchSize:    batchSize,
	}, nil
}

type redistributionJob struct {
	logg         *logger.Logger
	attestations pendingAttestationLister
	events       eventFinder
	distributor  rewards.Distributor
	minAge       time.Duration
	batchSize    int
}

func (j *redistributionJob) Name() string { return "reward-redistribution" }

// Run retries every sufficiently old pending attestation in the batch. One
// failing attestation does not block the rest; errors are aggregated.
func (j *redistributionJob) Run(ctx context.Context) error {
	pending, err := j.attestations.ListPendingOlderThan(ctx, j.minAge, j.batchSize)
	if err != nil {
		return fmt.Errorf("list pending attestations: %w", err)
	}

	var errs []error
	var distributed, capped, skipped int
	for i := range pending {
		attestation := pending[i]
		event, err := j.events.FindByID(ctx, attestation.EventID)
		if err != nil {
			errs = append(errs, fmt.Errorf("load event %s: %w", attestation.EventID, err))
			continue
		}
		result, err := j.distributor.Distribute(ctx, event, &attestation)
		if err != nil {
			errs = append(errs, fmt.Errorf("distribute attestation %s: %w", attestation.ID, err))
			continue
		}
		switch result.Outcome {
		case rewards.OutcomeDistributed:
			distributed++
		case rewards.OutcomeCapped:
			capped++
		default:
			skipped++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"pending":     len(pending),
		"distributed": distributed,
		"capped":      capped,
		"skipped":     skipped,
		"failed":      len(errs),
	})
	j.logg.Info(logCtx, "redistribution pass complete")
	return multierr.Combine(errs...)
}
