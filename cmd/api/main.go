package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/attesthealth/attest-backend/api/routes"
	"github.com/attesthealth/attest-backend/internal/attestations"
	"github.com/attesthealth/attest-backend/internal/audit"
	"github.com/attesthealth/attest-backend/internal/entities"
	"github.com/attesthealth/attest-backend/internal/events"
	"github.com/attesthealth/attest-backend/internal/ledger"
	"github.com/attesthealth/attest-backend/internal/policies"
	"github.com/attesthealth/attest-backend/internal/rewards"
	documentation "github.com/attesthealth/attest-backend/internal/webhooks/documentation"
	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/db"
	"github.com/attesthealth/attest-backend/pkg/logger"
	"github.com/attesthealth/attest-backend/pkg/metrics"
	"github.com/attesthealth/attest-backend/pkg/migrate"
	"github.com/attesthealth/attest-backend/pkg/outbox"
	"github.com/attesthealth/attest-backend/pkg/outbox/idempotency"
	"github.com/attesthealth/attest-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	auditService, err := audit.NewService(outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Webhook.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	entityRepo := entities.NewRepository(dbClient.DB())
	eventRepo := events.NewRepository(dbClient.DB())
	attestationRepo := attestations.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())

	policyResolver, err := policies.NewResolver(policies.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create policy resolver", err)
		os.Exit(1)
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	recorder, err := events.NewRecorder(cfg.Webhook, dbClient, eventRepo, attestationRepo, entityRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create event recorder", err)
		os.Exit(1)
	}

	distributor, err := rewards.NewDistributor(
		dbClient,
		ledgerRepo,
		attestationRepo,
		entityRepo,
		policyResolver,
		auditService,
		pipelineMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reward distributor", err)
		os.Exit(1)
	}

	documentationService, err := documentation.NewService(documentation.ServiceParams{
		Integrations: documentation.NewIntegrationRepository(dbClient.DB()),
		Guard:        guard,
		Recorder:     recorder,
		Events:       eventRepo,
		Distributor:  distributor,
		Audit:        auditService,
		Tx:           dbClient,
		Metrics:      pipelineMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create documentation webhook service", err)
		os.Exit(1)
	}

	entityService, err := entities.NewService(entityRepo, dbClient, auditService)
	if err != nil {
		logg.Error(context.Background(), "failed to create entity service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			documentationService,
			entityService,
			ledgerService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
