package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attesthealth/attest-backend/api/controllers"
	"github.com/attesthealth/attest-backend/api/middleware"
	"github.com/attesthealth/attest-backend/internal/entities"
	"github.com/attesthealth/attest-backend/internal/ledger"
	documentation "github.com/attesthealth/attest-backend/internal/webhooks/documentation"
	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/db"
	"github.com/attesthealth/attest-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	documentationService *documentation.Service,
	entityService entities.Service,
	ledgerService ledger.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{
			"postgres": dbP,
			"redis":    redisP,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/documentation", controllers.DocumentationWebhook(documentationService, cfg.Webhook, logg))
	})

	r.Route("/api/v1/entities", func(r chi.Router) {
		r.Post("/", controllers.RegisterEntity(entityService, logg))
		r.Route("/{entityRef}", func(r chi.Router) {
			r.Get("/", controllers.GetEntity(entityService, logg))
			r.Post("/organization", controllers.LinkOrganization(entityService, logg))
			r.Post("/verified", controllers.SetEntityVerified(entityService, logg))
			r.Route("/ledger", func(r chi.Router) {
				r.Get("/", controllers.LedgerEntries(entityService, ledgerService, logg))
				r.Get("/balance", controllers.LedgerBalance(entityService, ledgerService, logg))
			})
		})
	})

	return r
}
