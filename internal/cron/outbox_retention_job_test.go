package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/logger"
)

type pruneRecorder struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	err         error
}

func (r *pruneRecorder) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	r.calls++
	r.cutoff = cutoff
	r.minAttempts = minAttemptCount
	return 7, r.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func retentionJob(t *testing.T, repo *pruneRecorder) *outboxRetentionJob {
	t.Helper()
	built, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTx{},
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	return built.(*outboxRetentionJob)
}

func TestOutboxRetentionJobDeletesPublishedRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &pruneRecorder{}
	job := retentionJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("expected one prune call, got %d", repo.calls)
	}
	wantCutoff := now.Add(-outboxRetentionDays * 24 * time.Hour)
	if !repo.cutoff.Equal(wantCutoff) {
		t.Fatalf("expected cutoff %s, got %s", wantCutoff, repo.cutoff)
	}
	if repo.minAttempts != outboxMinAttempts {
		t.Fatalf("expected min attempts %d, got %d", outboxMinAttempts, repo.minAttempts)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &pruneRecorder{err: errors.New("boom")}
	job := retentionJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
