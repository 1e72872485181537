package models

import (
	"errors"
	"fmt"
	"time"

	"boxoffice/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is the immutable financial record for a cart checkout. TotalAmount,
// Currency, StripeAmountCents and every OrderItem are frozen at creation and
// never recalculated from the catalog, even if catalog prices change later.
type Order struct {
	ID          uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`
	OrderNumber string    `gorm:"uniqueIndex" json:"order_number"`

	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Comments string `json:"comments,omitempty"`

	TotalAmount float64           `json:"total_amount"`
	Currency    string            `gorm:"default:'USD'" json:"currency"`
	Status      types.OrderStatus `gorm:"default:'pending'" json:"status"`
	// StripeAmountCents is the frozen total in the smallest currency unit,
	// used for exact-match validation of webhook payloads.
	StripeAmountCents int64 `json:"stripe_amount_cents"`

	SalesChannelID    *uint      `json:"sales_channel_id,omitempty"`
	PaymentIntentID   *string    `gorm:"uniqueIndex" json:"payment_intent_id,omitempty"`
	CheckoutSessionID *string    `json:"checkout_session_id,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`

	SalesChannel *SalesChannel   `gorm:"foreignKey:sales_channel_id" json:"-"`
	Items        []OrderItem     `json:"items,omitempty"`
	StateLogs    []OrderStateLog `gorm:"foreignKey:order_id" json:"-"`

	types.Timestamps
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a frozen line item. Financial and snapshot fields are captured
// once during the creation transaction; any later mutation is rejected by
// the BeforeUpdate guard before a partial write can happen.
type OrderItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	EventID    uint      `json:"event_id"`
	CategoryID uint      `json:"category_id"`

	Quantity  uint    `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`

	// Snapshot of event/category display data at purchase time. The catalog
	// row may change or be retired, the historical order renders the same
	// forever.
	EventTitle   string `json:"event_title"`
	EventDate    string `json:"event_date"`
	EventMonth   string `json:"event_month"`
	EventDay     string `json:"event_day"`
	EventTime    string `json:"event_time"`
	CategoryName string `json:"category_name"`
	Venue        string `json:"venue"`

	Order    Order    `json:"-"`
	Event    Event    `json:"-"`
	Category Category `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at"`
}

// Field names guarded against mutation after creation.
var frozenItemFields = []string{
	"Quantity", "UnitPrice", "Subtotal",
	"EventTitle", "EventDate", "EventMonth", "EventDay", "EventTime",
	"CategoryName", "Venue",
}

func (item *OrderItem) BeforeUpdate(tx *gorm.DB) error {
	// Updates() carries the new values in the statement destination, not in
	// the hook receiver.
	for _, field := range frozenItemFields {
		if tx.Statement.Changed(field) {
			return frozenFieldError(field, nil, nil)
		}
	}
	// Save() carries them on the receiver; compare against the stored row.
	var original OrderItem
	err := tx.Session(&gorm.Session{NewDB: true}).
		Where("id = ?", item.ID).
		First(&original).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if item.Quantity != 0 && item.Quantity != original.Quantity {
		return frozenFieldError("quantity", original.Quantity, item.Quantity)
	}
	if item.UnitPrice != 0 && item.UnitPrice != original.UnitPrice {
		return frozenFieldError("unit_price", original.UnitPrice, item.UnitPrice)
	}
	if item.Subtotal != 0 && item.Subtotal != original.Subtotal {
		return frozenFieldError("subtotal", original.Subtotal, item.Subtotal)
	}
	frozen := []struct {
		name     string
		original string
		updated  string
	}{
		{"event_title", original.EventTitle, item.EventTitle},
		{"event_date", original.EventDate, item.EventDate},
		{"event_month", original.EventMonth, item.EventMonth},
		{"event_day", original.EventDay, item.EventDay},
		{"event_time", original.EventTime, item.EventTime},
		{"category_name", original.CategoryName, item.CategoryName},
		{"venue", original.Venue, item.Venue},
	}
	for _, f := range frozen {
		if f.updated != "" && f.updated != f.original {
			return frozenFieldError(f.name, f.original, f.updated)
		}
	}
	return nil
}

func frozenFieldError(field string, original, attempted any) error {
	msg := fmt.Sprintf("cannot modify frozen field %q on existing order item", field)
	if original != nil || attempted != nil {
		msg = fmt.Sprintf("%s (original: %v, attempted: %v)", msg, original, attempted)
	}
	return types.NewServiceError(types.ErrCodeFrozenField, msg, map[string]any{"field": field})
}
