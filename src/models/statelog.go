package models

import (
	"time"

	"boxoffice/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStateLog is the append-only audit trail of order status transitions.
// Rows are written only by the status-transition primitive, in the same
// transaction as the status change; they are never updated or deleted.
type OrderStateLog struct {
	ID         uint              `gorm:"primarykey" json:"id"`
	OrderID    uuid.UUID         `gorm:"type:uuid;index" json:"order_id"`
	FromStatus types.OrderStatus `gorm:"index" json:"from_status"`
	ToStatus   types.OrderStatus `gorm:"index" json:"to_status"`
	Source     types.StateSource `gorm:"index" json:"source"`
	Note       string            `json:"note,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime:nano;index" json:"created_at"`
}

func (l *OrderStateLog) BeforeUpdate(tx *gorm.DB) error {
	return types.NewServiceError(types.ErrCodeAppendOnly, "order state log rows cannot be modified", nil)
}

func (l *OrderStateLog) BeforeDelete(tx *gorm.DB) error {
	return types.NewServiceError(types.ErrCodeAppendOnly, "order state log rows cannot be deleted", nil)
}
