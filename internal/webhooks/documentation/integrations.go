package webhookdocs

import (
	"context"

	"gorm.io/gorm"

	"github.com/attesthealth/attest-backend/pkg/db/models"
)

// IntegrationRepository looks up registered webhook integrations.
type IntegrationRepository interface {
	FindByName(ctx context.Context, name string) (*models.WebhookIntegration, error)
}

type integrationRepository struct {
	db *gorm.DB
}

// NewIntegrationRepository returns an integration repository bound to the
// provided database.
func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) FindByName(ctx context.Context, name string) (*models.WebhookIntegration, error) {
	var integration models.WebhookIntegration
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&integration).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}
