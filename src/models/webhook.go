package models

import (
	"time"

	"boxoffice/src/types"

	"github.com/google/uuid"
)

// WebhookEvent is the idempotency ledger for provider webhook deliveries.
// The (provider, provider_event_id) unique index is the last line of defense
// against duplicate payment processing under concurrent delivery; it must be
// enforced by the store, not only in application code.
type WebhookEvent struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	Provider        string `gorm:"index:ux_webhook_events_provider_event,unique,priority:1;default:'stripe'" json:"provider"`
	ProviderEventID string `gorm:"index:ux_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string `json:"event_type"`

	ProcessingStatus types.WebhookStatus `gorm:"index;default:'received'" json:"processing_status"`
	RawPayload       string              `json:"raw_payload,omitempty"`
	RelatedOrderID   *uuid.UUID          `gorm:"type:uuid;index" json:"related_order_id,omitempty"`
	ErrorMessage     string              `json:"error_message,omitempty"`

	ReceivedAt  time.Time  `gorm:"autoCreateTime:nano;index" json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
