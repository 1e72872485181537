package models

import (
	"time"

	"boxoffice/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentLog is the forensic journal of every payment event received. A row
// is written immediately after signature validation, before the idempotency
// gate, so duplicates and rejected events still leave a trail.
type PaymentLog struct {
	ID        uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	Provider  string    `gorm:"index;default:'stripe'" json:"provider"`
	EventID   string    `gorm:"index" json:"event_id"`
	EventType string    `json:"event_type"`

	RawPayload  string  `json:"raw_payload,omitempty"`
	AmountCents *int64  `json:"amount_cents,omitempty"`
	Currency    string  `json:"currency,omitempty"`

	Status  types.PaymentLogStatus `gorm:"index;default:'received'" json:"status"`
	Note    string                 `json:"note,omitempty"`
	OrderID *uuid.UUID             `gorm:"type:uuid;index" json:"order_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime:nano;index" json:"created_at"`
}

func (l *PaymentLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
