package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"boxoffice/src/utils"

	"github.com/stripe/stripe-go/v82"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// Reprocess actions reported back to the operator.
const (
	REPROCESS_MARKED_PAID      = "marked_paid"
	REPROCESS_MARKED_CANCELLED = "marked_cancelled"
	REPROCESS_ALREADY_IN_SYNC  = "already_in_sync"
	REPROCESS_LEFT_PENDING     = "left_pending"
	REPROCESS_NO_REFERENCE     = "no_payment_reference"
)

type ReprocessResult struct {
	OrderID         string            `json:"order_id"`
	OrderNumber     string            `json:"order_number"`
	Action          string            `json:"action"`
	GatewayStatus   string            `json:"gateway_status,omitempty"`
	GatewayAmount   float64           `json:"gateway_amount,omitempty"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	OrderStatus     types.OrderStatus `json:"order_status"`
	Detail          string            `json:"detail,omitempty"`
}

// NormalizeIntentStatus maps provider payment intent statuses onto local
// order statuses. Every in-flight provider state maps to pending; only
// terminal provider states move an order.
func NormalizeIntentStatus(status stripe.PaymentIntentStatus) types.OrderStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return types.ORDER_PAID
	case stripe.PaymentIntentStatusCanceled:
		return types.ORDER_CANCELLED
	default:
		return types.ORDER_PENDING
	}
}

// ReprocessOrder polls the payment gateway for the true state of an order's
// payment and converges local state onto it. Used by operators when a
// webhook delivery was lost or absorbed as an anomaly. All applied
// transitions carry the system source in the audit trail.
func ReprocessOrder(orderId string) (*ReprocessResult, error) {
	order, err := GetOrder(orderId)
	if err != nil {
		return nil, err
	}
	result := &ReprocessResult{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		OrderStatus: order.Status,
	}

	intentId := findPaymentIntentID(order)
	if intentId == "" {
		result.Action = REPROCESS_NO_REFERENCE
		result.Detail = "no payment intent reference found on order or webhook ledger"
		return result, nil
	}
	result.PaymentIntentID = intentId

	intent, err := lib.GetPaymentGateway().RetrievePaymentIntent(context.Background(), intentId)
	if err != nil {
		return nil, err
	}
	result.GatewayStatus = string(intent.Status)
	// Reported in major units for the operator; matching stays in cents.
	result.GatewayAmount = utils.SmallestUnitToAmount(intent.Amount, string(intent.Currency))

	target := NormalizeIntentStatus(intent.Status)
	if target == order.Status {
		result.Action = REPROCESS_ALREADY_IN_SYNC
		return result, nil
	}

	switch target {
	case types.ORDER_PAID:
		if err := applyReprocessPaid(order, intent); err != nil {
			return nil, err
		}
		result.Action = REPROCESS_MARKED_PAID
		result.OrderStatus = types.ORDER_PAID
		DrainOrder(order.ID)
	case types.ORDER_CANCELLED:
		if order.Status == types.ORDER_PAID || order.Status == types.ORDER_REFUNDED {
			result.Action = REPROCESS_ALREADY_IN_SYNC
			result.Detail = fmt.Sprintf("gateway reports canceled but order is %s, leaving untouched", order.Status)
			return result, nil
		}
		cancelled, err := CancelOrder(order.ID.String(), types.SOURCE_SYSTEM, fmt.Sprintf("payment intent %s canceled at gateway", intentId))
		if err != nil {
			return nil, err
		}
		result.Action = REPROCESS_MARKED_CANCELLED
		result.OrderStatus = cancelled.Status
	default:
		result.Action = REPROCESS_LEFT_PENDING
		result.Detail = fmt.Sprintf("gateway status %s is not terminal", intent.Status)
	}
	return result, nil
}

// applyReprocessPaid re-checks the order under a lock before marking it paid,
// so a webhook landing between the poll and the apply cannot double-process.
func applyReprocessPaid(order *models.Order, intent *stripe.PaymentIntent) error {
	return db.GetDb().Transaction(func(tx *gorm.DB) error {
		var fresh models.Order
		if err := db.ForUpdate(tx).Where("id = ?", order.ID).First(&fresh).Error; err != nil {
			return err
		}
		if fresh.PaymentIntentID != nil && *fresh.PaymentIntentID == intent.ID {
			return nil
		}
		if !fresh.Status.Payable() {
			return types.InvalidStatusError(fresh.Status)
		}
		if !strings.EqualFold(string(intent.Currency), fresh.Currency) {
			return fmt.Errorf("currency mismatch for order %s: expected %s, got %s", fresh.OrderNumber, fresh.Currency, intent.Currency)
		}
		if intent.Amount != fresh.StripeAmountCents {
			return fmt.Errorf("amount mismatch for order %s: expected %d, got %d", fresh.OrderNumber, fresh.StripeAmountCents, intent.Amount)
		}
		if err := markOrderPaid(tx, &fresh, intent.ID, types.SOURCE_SYSTEM, fmt.Sprintf("manual reprocess of payment intent %s", intent.ID)); err != nil {
			return err
		}
		*order = fresh
		return nil
	})
}

// findPaymentIntentID returns the order's own reference when present, falling
// back to the most recent webhook delivery recorded for the order. Absorbed
// anomalies keep their payload on the ledger exactly for this purpose.
func findPaymentIntentID(order *models.Order) string {
	if order.PaymentIntentID != nil && *order.PaymentIntentID != "" {
		return *order.PaymentIntentID
	}
	var record models.WebhookEvent
	err := db.GetDb().
		Where("related_order_id = ?", order.ID).
		Order("id DESC").
		First(&record).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ""
	}
	if err != nil {
		return ""
	}
	return gjson.Get(record.RawPayload, "payment_intent").String()
}
