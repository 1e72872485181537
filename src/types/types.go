package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type OrderStatus string

const (
	ORDER_PENDING   OrderStatus = "pending"
	ORDER_CONFIRMED OrderStatus = "confirmed"
	ORDER_PAID      OrderStatus = "paid"
	ORDER_CANCELLED OrderStatus = "cancelled"
	ORDER_REFUNDED  OrderStatus = "refunded"
)

// Payable reports whether an order in this status may still be sent to checkout.
func (s OrderStatus) Payable() bool {
	return s == ORDER_PENDING || s == ORDER_CONFIRMED
}

// StateSource identifies what triggered a status transition.
type StateSource string

const (
	SOURCE_API     StateSource = "api"
	SOURCE_WEBHOOK StateSource = "webhook"
	SOURCE_ADMIN   StateSource = "admin"
	SOURCE_SYSTEM  StateSource = "system"
)

type WebhookStatus string

const (
	WEBHOOK_RECEIVED  WebhookStatus = "received"
	WEBHOOK_PROCESSED WebhookStatus = "processed"
	WEBHOOK_FAILED    WebhookStatus = "failed"
	WEBHOOK_SKIPPED   WebhookStatus = "skipped"
)

type PaymentLogStatus string

const (
	PAYMENT_LOG_RECEIVED  PaymentLogStatus = "received"
	PAYMENT_LOG_PROCESSED PaymentLogStatus = "processed"
	PAYMENT_LOG_IGNORED   PaymentLogStatus = "ignored"
	PAYMENT_LOG_ERROR     PaymentLogStatus = "error"
)

type OutboxStatus string

const (
	OUTBOX_PENDING OutboxStatus = "pending"
	OUTBOX_SENT    OutboxStatus = "sent"
	OUTBOX_FAILED  OutboxStatus = "failed"
)

type NotificationType string

const (
	NOTIFY_ORDER_CREATED   NotificationType = "order_created"
	NOTIFY_ORDER_PAID      NotificationType = "order_paid"
	NOTIFY_ORDER_CANCELLED NotificationType = "order_cancelled"
)

type OrderItemInput struct {
	EventID    uint `json:"event_id" binding:"required"`
	CategoryID uint `json:"category_id" binding:"required"`
	Quantity   uint `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequestBody struct {
	Name     string           `json:"name" binding:"required"`
	Email    string           `json:"email" binding:"required,email"`
	Phone    string           `json:"phone" binding:"required,phone"`
	Comments string           `json:"comments,omitempty"`
	Items    []OrderItemInput `json:"items" binding:"required,min=1,dive"`
}

type CreateTournamentRequestBody struct {
	Name  string `json:"name" binding:"required"`
	Type  string `json:"type,omitempty"`
	Year  uint   `json:"year,omitempty"`
	Venue string `json:"venue" binding:"required"`
}

type CategoryInput struct {
	Name       string  `json:"name" binding:"required"`
	Price      float64 `json:"price" binding:"required,gt=0"`
	SeatsTotal uint    `json:"seats_total" binding:"required,min=1"`
	SortOrder  uint    `json:"sort_order,omitempty"`
	Color      string  `json:"color,omitempty"`
}

type CreateEventRequestBody struct {
	TournamentID uint            `json:"tournament_id" binding:"required"`
	Title        string          `json:"title" binding:"required"`
	EventDate    string          `json:"event_date" binding:"required"`
	Categories   []CategoryInput `json:"categories,omitempty" binding:"omitempty,dive"`
}

type CreateSessionRequestBody struct {
	OrderID string `json:"order_id" binding:"required,uuid"`
}

type OrderURIParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type UpdateCategoryRequestBody struct {
	Price    *float64 `json:"price,omitempty" binding:"omitempty,gte=0"`
	IsActive *bool    `json:"is_active,omitempty"`
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
