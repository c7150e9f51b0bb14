package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/attesthealth/attest-backend/api/responses"
	"github.com/attesthealth/attest-backend/api/validators"
	"github.com/attesthealth/attest-backend/internal/entities"
	"github.com/attesthealth/attest-backend/pkg/db/models"
	"github.com/attesthealth/attest-backend/pkg/enums"
	"github.com/attesthealth/attest-backend/pkg/logger"
)

type registerEntityRequest struct {
	AccountID   string          `json:"account_id" validate:"required"`
	Kind        string          `json:"kind" validate:"required"`
	DisplayName string          `json:"display_name" validate:"required"`
	Metadata    json.RawMessage `json:"metadata"`
}

type linkOrganizationRequest struct {
	OrganizationAccountID string `json:"organization_account_id" validate:"required"`
}

type setVerifiedRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

type entityResponse struct {
	ID             uuid.UUID        `json:"id"`
	AccountID      string           `json:"account_id"`
	Kind           enums.EntityKind `json:"kind"`
	DisplayName    string           `json:"display_name"`
	OrganizationID *uuid.UUID       `json:"organization_id,omitempty"`
	Verified       bool             `json:"verified"`
	Metadata       json.RawMessage  `json:"metadata,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toEntityResponse(entity *models.Entity) entityResponse {
	return entityResponse{
		ID:             entity.ID,
		AccountID:      entity.AccountID,
		Kind:           entity.Kind,
		DisplayName:    entity.DisplayName,
		OrganizationID: entity.OrganizationID,
		Verified:       entity.Verified,
		Metadata:       entity.Metadata,
		CreatedAt:      entity.CreatedAt,
	}
}

func RegisterEntity(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerEntityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entity, err := svc.Register(r.Context(), entities.RegisterInput{
			AccountID:   req.AccountID,
			Kind:        enums.EntityKind(req.Kind),
			DisplayName: req.DisplayName,
			Metadata:    req.Metadata,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toEntityResponse(entity))
	}
}

func GetEntity(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := resolveEntityRef(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toEntityResponse(entity))
	}
}

func LinkOrganization(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := resolveEntityRef(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req linkOrganizationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := svc.GetByAccountID(r.Context(), req.OrganizationAccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.LinkOrganization(r.Context(), entity.ID, org.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"entity_id":       entity.ID,
			"organization_id": org.ID,
		})
	}
}

func SetEntityVerified(svc entities.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity, err := resolveEntityRef(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setVerifiedRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetVerified(r.Context(), entity.ID, *req.Verified); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"entity_id": entity.ID,
			"verified":  *req.Verified,
		})
	}
}

// resolveEntityRef accepts either the entity UUID or the external account ID
// in the path, so callers can use whichever identifier they hold.
func resolveEntityRef(r *http.Request, svc entities.Service) (*models.Entity, error) {
	ref := chi.URLParam(r, "entityRef")
	if id, err := uuid.Parse(ref); err == nil {
		return svc.GetByID(r.Context(), id)
	}
	return svc.GetByAccountID(r.Context(), ref)
}
