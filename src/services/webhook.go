package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"boxoffice/src/db"
	"boxoffice/src/models"
	"boxoffice/src/types"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// ProcessWebhookEvent reconciles one signature-verified provider event
// against local order state. Anything that cannot match an order to pay is
// absorbed: logged, recorded on the ledger and acknowledged, so the provider
// stops retrying a delivery that will never succeed. Only transient store
// failures return an error.
func ProcessWebhookEvent(event *stripe.Event) error {
	conn := db.GetDb()
	raw := string(event.Data.Raw)
	payload := gjson.Parse(raw)

	// Forensic journal first. The row exists even when the idempotency gate
	// rejects the event a moment later.
	plog := models.PaymentLog{
		Provider:   "stripe",
		EventID:    event.ID,
		EventType:  string(event.Type),
		RawPayload: raw,
	}
	if v := payload.Get("amount_total"); v.Exists() {
		cents := v.Int()
		plog.AmountCents = &cents
	}
	plog.Currency = payload.Get("currency").String()
	if err := conn.Create(&plog).Error; err != nil {
		return err
	}

	// Idempotency gate. The unique index on (provider, provider_event_id) is
	// what actually prevents double processing under concurrent delivery.
	record := models.WebhookEvent{
		Provider:        "stripe",
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		RawPayload:      raw,
	}
	if err := conn.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("duplicate webhook event %s, skipping\n", event.ID)
			finishPaymentLog(conn, &plog, types.PAYMENT_LOG_IGNORED, "duplicate delivery", nil)
			return nil
		}
		return err
	}

	if event.Type != "checkout.session.completed" {
		finishWebhookEvent(conn, &record, types.WEBHOOK_SKIPPED, fmt.Sprintf("unhandled event type %s", event.Type), nil)
		finishPaymentLog(conn, &plog, types.PAYMENT_LOG_IGNORED, "unhandled event type", nil)
		return nil
	}

	orderId, err := uuid.Parse(payload.Get("metadata.order_id").String())
	if err != nil {
		finishWebhookEvent(conn, &record, types.WEBHOOK_FAILED, "missing or invalid order_id in session metadata", nil)
		finishPaymentLog(conn, &plog, types.PAYMENT_LOG_ERROR, "missing or invalid order_id in session metadata", nil)
		return nil
	}
	paymentIntentId := payload.Get("payment_intent").String()
	amountTotal := payload.Get("amount_total").Int()
	currency := payload.Get("currency").String()

	var order models.Order
	applyErr := conn.Transaction(func(tx *gorm.DB) error {
		err := db.ForUpdate(tx).Where("id = ?", orderId).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.OrderNotFoundError(orderId.String())
		}
		if err != nil {
			return err
		}
		if order.PaymentIntentID != nil {
			if *order.PaymentIntentID == paymentIntentId {
				// Same payment delivered twice under different event ids.
				return errAlreadyPaid
			}
			return fmt.Errorf("order %s already paid with different payment intent %s, got %s", order.OrderNumber, *order.PaymentIntentID, paymentIntentId)
		}
		if !order.Status.Payable() {
			return types.InvalidStatusError(order.Status)
		}
		if !strings.EqualFold(currency, order.Currency) {
			return fmt.Errorf("currency mismatch for order %s: expected %s, got %s", order.OrderNumber, order.Currency, currency)
		}
		if amountTotal != order.StripeAmountCents {
			return fmt.Errorf("amount mismatch for order %s: expected %d, got %d", order.OrderNumber, order.StripeAmountCents, amountTotal)
		}
		return markOrderPaid(tx, &order, paymentIntentId, types.SOURCE_WEBHOOK, fmt.Sprintf("checkout.session.completed %s", event.ID))
	})

	switch {
	case applyErr == nil:
		finishWebhookEvent(conn, &record, types.WEBHOOK_PROCESSED, "", &order.ID)
		finishPaymentLog(conn, &plog, types.PAYMENT_LOG_PROCESSED, "", &order.ID)
		DrainOrder(order.ID)
		return nil
	case errors.Is(applyErr, errAlreadyPaid):
		finishWebhookEvent(conn, &record, types.WEBHOOK_SKIPPED, "order already paid with same payment intent", &order.ID)
		finishPaymentLog(conn, &plog, types.PAYMENT_LOG_IGNORED, "order already paid with same payment intent", &order.ID)
		return nil
	default:
		// Anomalies are absorbed: the order is left untouched and the failure
		// is preserved on the ledger for manual reprocessing.
		log.Printf("webhook event %s not applied: %s\n", event.ID, applyErr.Error())
		var related *uuid.UUID
		if order.ID != uuid.Nil {
			related = &order.ID
		}
		finishWebhookEvent(conn, &record, types.WEBHOOK_FAILED, applyErr.Error(), related)
		finishPaymentLog(conn, &plog, types.PAYMENT_LOG_ERROR, applyErr.Error(), related)
		return nil
	}
}

var errAlreadyPaid = errors.New("order already paid")

func finishWebhookEvent(conn *gorm.DB, record *models.WebhookEvent, status types.WebhookStatus, errMsg string, orderId *uuid.UUID) {
	now := time.Now()
	updates := map[string]any{
		"processing_status": status,
		"processed_at":      now,
	}
	if errMsg != "" {
		updates["error_message"] = errMsg
	}
	if orderId != nil {
		updates["related_order_id"] = *orderId
	}
	if err := conn.Model(record).Updates(updates).Error; err != nil {
		log.Printf("error updating webhook event %d: %s\n", record.ID, err.Error())
	}
}

func finishPaymentLog(conn *gorm.DB, plog *models.PaymentLog, status types.PaymentLogStatus, note string, orderId *uuid.UUID) {
	updates := map[string]any{"status": status}
	if note != "" {
		updates["note"] = note
	}
	if orderId != nil {
		updates["order_id"] = *orderId
	}
	if err := conn.Model(plog).Updates(updates).Error; err != nil {
		log.Printf("error updating payment log %s: %s\n", plog.ID, err.Error())
	}
}
