package controllers

import (
	"net/http"

	"github.com/attesthealth/attest-backend/api/responses"
	"github.com/attesthealth/attest-backend/pkg/config"
	"github.com/attesthealth/attest-backend/pkg/db"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
	"github.com/attesthealth/attest-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Attest-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Attest-Env", cfg.App.Env)

		for name, pinger := range pingers {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					apperrors.Wrap(apperrors.CodeDependency, err, "dependency unavailable").
						WithDetails(map[string]string{"dependency": name}))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
