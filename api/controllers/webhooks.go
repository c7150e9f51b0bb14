package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/attesthealth/attest-backend/api/responses"
	"github.com/attesthealth/attest-backend/internal/rewards"
	documentation "github.com/attesthealth/attest-backend/internal/webhooks/documentation"
	"github.com/attesthealth/attest-backend/pkg/config"
	apperrors "github.com/attesthealth/attest-backend/pkg/errors"
	"github.com/attesthealth/attest-backend/pkg/logger"
)

const (
	headerIntegration = "X-Attest-Integration"
	headerSignature   = "X-Attest-Signature"
)

type documentationHandler interface {
	Handle(ctx context.Context, delivery documentation.Delivery) (*documentation.Result, error)
}

// DocumentationWebhook ingests signed documentation event deliveries. The raw
// body is read before any parsing because the signature covers the exact
// bytes on the wire.
func DocumentationWebhook(svc documentationHandler, cfg config.WebhookConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), cfg.HandleTimeout)
		defer cancel()

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				apperrors.Wrap(apperrors.CodeValidation, err, "unreadable delivery body"))
			return
		}

		result, err := svc.Handle(ctx, documentation.Delivery{
			IntegrationName: r.Header.Get(headerIntegration),
			Signature:       r.Header.Get(headerSignature),
			Payload:         payload,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, deliveryResponse(result))
	}
}

func deliveryResponse(result *documentation.Result) map[string]any {
	body := map[string]any{"event_id": result.EventID}
	switch {
	case result.Duplicate:
		body["status"] = "duplicate"
		body["message"] = "already processed"
	case result.Outcome == rewards.OutcomeCapped:
		body["status"] = "capped"
	case result.Outcome == rewards.OutcomeNoPolicy:
		// Recorded but unrewarded: no active policy covers the kind.
		body["status"] = "recorded"
	default:
		body["status"] = "distributed"
		body["reward_amount"] = result.BaseReward
		body["network_fee"] = result.NetworkFee
	}
	return body
}
