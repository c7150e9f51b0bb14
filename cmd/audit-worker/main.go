package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/attesthealth/attest-backend/internal/consumers/auditlog"
	"github.com/attesthealth/attest-backend/pkg/bigquery"
	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/outbox/idempotency"
	"github.com/attesthealth/attest-backend/pkg/pubsub"
	"github.com/attesthealth/attest-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "audit-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "audit-worker"

	logg = logger.New(logger.Options{
		ServiceName: "audit-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	bigqueryClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bigqueryClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}()

	guard, err := idempotency.NewManager(redisClient, cfg.Webhook.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := auditlog.NewConsumer(
		pubsubClient.AuditSubscription(),
		bigqueryClient,
		cfg.BigQuery.AuditEventsTable,
		guard,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting audit worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "audit worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "audit worker shutting down gracefully")
}
