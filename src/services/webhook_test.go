package services

import (
	"encoding/json"
	"fmt"
	"testing"

	"boxoffice/src/models"
	"boxoffice/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

type WebhookTestSuite struct {
	suite.Suite
	DB       *gorm.DB
	Fixture  *catalogFixture
	Notifier *fakeNotifier
}

func (s *WebhookTestSuite) SetupTest() {
	s.DB = newTestDB(s.T())
	s.Fixture = seedCatalog(s.T(), s.DB)
	s.Notifier = &fakeNotifier{}
	SetNotifier(s.Notifier)
}

func (s *WebhookTestSuite) createPendingOrder(quantity uint) *models.Order {
	order, err := CreateOrder(validOrderBody(s.Fixture, quantity), "")
	s.Require().NoError(err)
	s.Notifier.Calls = nil
	return order
}

func checkoutCompletedEvent(eventId string, orderId uuid.UUID, paymentIntent string, amountTotal int64, currency string) *stripe.Event {
	raw := fmt.Sprintf(`{
		"id": "cs_test_abc",
		"object": "checkout.session",
		"amount_total": %d,
		"currency": %q,
		"payment_intent": %q,
		"metadata": {"order_id": %q}
	}`, amountTotal, currency, paymentIntent, orderId)
	return &stripe.Event{
		ID:   eventId,
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func (s *WebhookTestSuite) TestCompletedSessionMarksOrderPaid() {
	order := s.createPendingOrder(4)
	event := checkoutCompletedEvent("evt_1", order.ID, "pi_1", order.StripeAmountCents, "usd")

	s.Require().NoError(ProcessWebhookEvent(event))

	reloaded, err := GetOrder(order.ID.String())
	s.Require().NoError(err)
	s.Equal(types.ORDER_PAID, reloaded.Status)
	s.Require().NotNil(reloaded.PaymentIntentID)
	s.Equal("pi_1", *reloaded.PaymentIntentID)
	s.NotNil(reloaded.PaidAt)

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_1").First(&record).Error)
	s.Equal(types.WEBHOOK_PROCESSED, record.ProcessingStatus)
	s.Require().NotNil(record.RelatedOrderID)
	s.Equal(order.ID, *record.RelatedOrderID)
	s.NotNil(record.ProcessedAt)

	var entry models.OrderStateLog
	s.Require().NoError(s.DB.Where("order_id = ? AND to_status = ?", order.ID, types.ORDER_PAID).First(&entry).Error)
	s.Equal(types.ORDER_PENDING, entry.FromStatus)
	s.Equal(types.SOURCE_WEBHOOK, entry.Source)

	s.Require().Len(s.Notifier.Calls, 1)
	s.Equal(types.NOTIFY_ORDER_PAID, s.Notifier.Calls[0].Notification)
}

func (s *WebhookTestSuite) TestDuplicateEventIdIsAbsorbed() {
	order := s.createPendingOrder(2)
	event := checkoutCompletedEvent("evt_dup", order.ID, "pi_1", order.StripeAmountCents, "usd")

	s.Require().NoError(ProcessWebhookEvent(event))
	s.Require().NoError(ProcessWebhookEvent(event))

	var paidLogs int64
	s.DB.Model(&models.OrderStateLog{}).
		Where("order_id = ? AND to_status = ?", order.ID, types.ORDER_PAID).
		Count(&paidLogs)
	s.Equal(int64(1), paidLogs)

	// Both deliveries leave a forensic trail; only one is processed.
	var plogs []models.PaymentLog
	s.Require().NoError(s.DB.Where("event_id = ?", "evt_dup").Order("created_at ASC").Find(&plogs).Error)
	s.Require().Len(plogs, 2)
	s.Equal(types.PAYMENT_LOG_PROCESSED, plogs[0].Status)
	s.Equal(types.PAYMENT_LOG_IGNORED, plogs[1].Status)

	var records int64
	s.DB.Model(&models.WebhookEvent{}).Where("provider_event_id = ?", "evt_dup").Count(&records)
	s.Equal(int64(1), records)

	// Exactly one paid notification attempt across both deliveries.
	s.Require().Len(s.Notifier.Calls, 1)
	s.Equal(types.NOTIFY_ORDER_PAID, s.Notifier.Calls[0].Notification)
}

func (s *WebhookTestSuite) TestSamePaymentIntentUnderNewEventIdIsSkipped() {
	order := s.createPendingOrder(2)
	s.Require().NoError(ProcessWebhookEvent(checkoutCompletedEvent("evt_a", order.ID, "pi_1", order.StripeAmountCents, "usd")))
	s.Require().NoError(ProcessWebhookEvent(checkoutCompletedEvent("evt_b", order.ID, "pi_1", order.StripeAmountCents, "usd")))

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_b").First(&record).Error)
	s.Equal(types.WEBHOOK_SKIPPED, record.ProcessingStatus)

	var paidLogs int64
	s.DB.Model(&models.OrderStateLog{}).
		Where("order_id = ? AND to_status = ?", order.ID, types.ORDER_PAID).
		Count(&paidLogs)
	s.Equal(int64(1), paidLogs)
}

func (s *WebhookTestSuite) TestDifferentPaymentIntentOnPaidOrderIsAnomaly() {
	order := s.createPendingOrder(2)
	s.Require().NoError(ProcessWebhookEvent(checkoutCompletedEvent("evt_a", order.ID, "pi_1", order.StripeAmountCents, "usd")))
	s.Require().NoError(ProcessWebhookEvent(checkoutCompletedEvent("evt_c", order.ID, "pi_2", order.StripeAmountCents, "usd")))

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_c").First(&record).Error)
	s.Equal(types.WEBHOOK_FAILED, record.ProcessingStatus)
	s.Contains(record.ErrorMessage, "different payment intent")

	reloaded, err := GetOrder(order.ID.String())
	s.Require().NoError(err)
	s.Equal("pi_1", *reloaded.PaymentIntentID)
}

func (s *WebhookTestSuite) TestAmountMismatchLeavesOrderPending() {
	order := s.createPendingOrder(4)
	event := checkoutCompletedEvent("evt_amt", order.ID, "pi_1", order.StripeAmountCents-1, "usd")

	s.Require().NoError(ProcessWebhookEvent(event))

	reloaded, err := GetOrder(order.ID.String())
	s.Require().NoError(err)
	s.Equal(types.ORDER_PENDING, reloaded.Status)
	s.Nil(reloaded.PaymentIntentID)

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_amt").First(&record).Error)
	s.Equal(types.WEBHOOK_FAILED, record.ProcessingStatus)
	s.Contains(record.ErrorMessage, "amount mismatch")
	s.Empty(s.Notifier.Calls)
}

func (s *WebhookTestSuite) TestCurrencyMismatchLeavesOrderPending() {
	order := s.createPendingOrder(1)
	event := checkoutCompletedEvent("evt_cur", order.ID, "pi_1", order.StripeAmountCents, "aed")

	s.Require().NoError(ProcessWebhookEvent(event))

	reloaded, err := GetOrder(order.ID.String())
	s.Require().NoError(err)
	s.Equal(types.ORDER_PENDING, reloaded.Status)

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_cur").First(&record).Error)
	s.Equal(types.WEBHOOK_FAILED, record.ProcessingStatus)
	s.Contains(record.ErrorMessage, "currency mismatch")
}

func (s *WebhookTestSuite) TestCancelledOrderIsNotPaid() {
	order := s.createPendingOrder(1)
	_, err := CancelOrder(order.ID.String(), types.SOURCE_ADMIN, "expired")
	s.Require().NoError(err)
	s.Notifier.Calls = nil

	event := checkoutCompletedEvent("evt_late", order.ID, "pi_1", order.StripeAmountCents, "usd")
	s.Require().NoError(ProcessWebhookEvent(event))

	reloaded, err := GetOrder(order.ID.String())
	s.Require().NoError(err)
	s.Equal(types.ORDER_CANCELLED, reloaded.Status)

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_late").First(&record).Error)
	s.Equal(types.WEBHOOK_FAILED, record.ProcessingStatus)
}

func (s *WebhookTestSuite) TestUnhandledEventTypeIsSkipped() {
	event := &stripe.Event{
		ID:   "evt_other",
		Type: "payment_intent.created",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"pi_1"}`)},
	}
	s.Require().NoError(ProcessWebhookEvent(event))

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_other").First(&record).Error)
	s.Equal(types.WEBHOOK_SKIPPED, record.ProcessingStatus)
}

func (s *WebhookTestSuite) TestUnknownOrderIsAbsorbed() {
	event := checkoutCompletedEvent("evt_ghost", uuid.New(), "pi_1", 1000, "usd")
	s.Require().NoError(ProcessWebhookEvent(event))

	var record models.WebhookEvent
	s.Require().NoError(s.DB.Where("provider_event_id = ?", "evt_ghost").First(&record).Error)
	s.Equal(types.WEBHOOK_FAILED, record.ProcessingStatus)
}

func TestWebhookSuite(t *testing.T) {
	suite.Run(t, new(WebhookTestSuite))
}
