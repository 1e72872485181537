package models

import (
	"time"

	"boxoffice/src/types"

	"github.com/google/uuid"
)

// NotificationOutbox is a durable "intent to notify" record. Rows are created
// inside the same transaction as the status change that triggers them and
// drained by a separate step after commit, so a crash between commit and
// delivery never loses a notification.
type NotificationOutbox struct {
	ID               uint                   `gorm:"primarykey" json:"id"`
	OrderID          uuid.UUID              `gorm:"type:uuid;index:idx_outbox_order_type,priority:1" json:"order_id"`
	NotificationType types.NotificationType `gorm:"index:idx_outbox_order_type,priority:2" json:"notification_type"`
	Status           types.OutboxStatus     `gorm:"index:idx_outbox_status_created,priority:1;default:'pending'" json:"status"`

	AttemptCount uint   `gorm:"default:0" json:"attempt_count"`
	LastError    string `json:"last_error,omitempty"`

	CreatedAt time.Time  `gorm:"autoCreateTime:nano;index:idx_outbox_status_created,priority:2" json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}
