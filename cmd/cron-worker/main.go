package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/attesthealth/attest-backend/internal/attestations"
	"github.com/attesthealth/attest-backend/internal/audit"
	"github.com/attesthealth/attest-backend/internal/cron"
	"github.com/attesthealth/attest-backend/internal/entities"
	"github.com/attesthealth/attest-backend/internal/events"
	"github.com/attesthealth/attest-backend/internal/ledger"
	"github.com/attesthealth/attest-backend/internal/policies"
	"github.com/attesthealth/attest-backend/internal/rewards"
	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/db"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/metrics"
	"github.com/attesthealth/attest-backend/pkg/migrate"
	"github.com/attesthealth/attest-backend/pkg/outbox"
	"github.com/attesthealth/attest-backend/pkg/redis"
)

const lockKeyFormat = "attest:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	outboxRepo := outbox.NewRepository(dbClient.DB())
	auditService, err := audit.NewService(outbox.NewService(outboxRepo, logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	attestationRepo := attestations.NewRepository(dbClient.DB())
	eventRepo := events.NewRepository(dbClient.DB())

	policyResolver, err := policies.NewResolver(policies.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create policy resolver", err)
		os.Exit(1)
	}

	distributor, err := rewards.NewDistributor(
		dbClient,
		ledger.NewRepository(dbClient.DB()),
		attestationRepo,
		entities.NewRepository(dbClient.DB()),
		policyResolver,
		auditService,
		metrics.NewPipelineMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reward distributor", err)
		os.Exit(1)
	}

	redistributionJob, err := cron.NewRedistributionJob(cron.RedistributionJobParams{
		Logger:       logg,
		Attestations: attestationRepo,
		Events:       eventRepo,
		Distributor:  distributor,
		MinAge:       cfg.Cron.MinAttestationAge,
		BatchSize:    cfg.Cron.RetryBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create redistribution job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(redistributionJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
