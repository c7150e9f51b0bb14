package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceRef identifies what produced the audit event: the webhook integration
// that delivered it, the entity it concerns, or both.
type SourceRef struct {
	IntegrationID *uuid.UUID `json:"integrationId,omitempty"`
	EntityID      *uuid.UUID `json:"entityId,omitempty"`
	AccountID     string     `json:"accountId,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     *SourceRef      `json:"source,omitempty"`
	Data       json.RawMessage `json:"data"`
}
