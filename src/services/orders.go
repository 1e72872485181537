package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"boxoffice/src/config"
	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"boxoffice/src/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const orderNumberMaxRetries = 5

// ValidateItems checks a cart against the catalog without taking any locks.
// It reports the first problem found. A nil error here is advisory only; the
// authoritative availability check happens again under row locks inside the
// creation transaction.
func ValidateItems(tx *gorm.DB, items []types.OrderItemInput) error {
	for _, input := range items {
		var event models.Event
		err := tx.Where("id = ? AND is_active = ?", input.EventID, true).First(&event).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.EventNotFoundError(input.EventID)
		}
		if err != nil {
			return err
		}
		var category models.Category
		err = tx.First(&category, input.CategoryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.CategoryNotFoundError(input.CategoryID, input.EventID)
		}
		if err != nil {
			return err
		}
		if category.EventID != event.ID {
			return types.CategoryEventMismatchError(category.ID, event.ID)
		}
		if !category.Purchasable() {
			return types.CategoryNotPurchasableError(category.Name, "closed")
		}
		if category.SeatsAvailable == 0 {
			return types.CategoryNotPurchasableError(category.Name, "sold_out")
		}
		if category.SeatsAvailable < input.Quantity {
			return types.InsufficientSeatsError(category.Name, category.SeatsAvailable, input.Quantity)
		}
	}
	return nil
}

// nextOrderNumber derives the next order number from the current maximum.
// Concurrent callers may derive the same candidate; the unique index on
// order_number catches the collision and the caller retries.
func nextOrderNumber(tx *gorm.DB) (string, error) {
	prefix := config.OrderNumberPrefix + "/"
	var last sql.NullString
	err := tx.Model(&models.Order{}).
		Where("order_number LIKE ?", prefix+"%").
		Select("MAX(order_number)").
		Row().
		Scan(&last)
	if err != nil {
		return "", err
	}
	next := config.OrderNumberSeed
	if last.Valid {
		if n, err := strconv.Atoi(strings.TrimPrefix(last.String, prefix)); err == nil && n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%d", prefix, next), nil
}

// ChangeStatus is the single transition primitive. It mutates the status and
// appends the audit row in the caller's transaction, so either both land or
// neither does. Returns false without error when the order already has the
// target status.
func ChangeStatus(tx *gorm.DB, order *models.Order, to types.OrderStatus, source types.StateSource, note string) (bool, error) {
	if order.Status == to {
		return false, nil
	}
	from := order.Status
	if err := tx.Model(order).Update("status", to).Error; err != nil {
		return false, err
	}
	order.Status = to
	entry := models.OrderStateLog{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		Source:     source,
		Note:       note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return false, err
	}
	return true, nil
}

// CreateOrder validates, reserves and freezes a cart into an immutable order.
// Every category row in the cart is locked before its availability is checked
// and decremented, so two concurrent checkouts for the last seats cannot both
// succeed. All writes happen in one transaction; notification delivery is
// attempted only after commit.
func CreateOrder(body *types.CreateOrderRequestBody, channelDomain string) (*models.Order, error) {
	conn := db.GetDb()

	if err := ValidateItems(conn, body.Items); err != nil {
		return nil, err
	}

	channel := ResolveSalesChannel(conn, channelDomain)

	// A unique violation on order_number aborts the whole transaction, so the
	// collision retry re-runs the transaction rather than the insert.
	var order *models.Order
	var err error
	for attempt := 0; attempt < orderNumberMaxRetries; attempt++ {
		err = conn.Transaction(func(tx *gorm.DB) error {
			created, err := createOrderLocked(tx, body, channel)
			if err != nil {
				return err
			}
			order = created
			return nil
		})
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		if err := conn.Transaction(func(tx *gorm.DB) error {
			return RecalculateMinPrice(tx, item.EventID)
		}); err != nil {
			log.Printf("error recalculating min price for event %d: %s\n", item.EventID, err.Error())
		}
		invalidateEventCache(item.EventID)
	}

	DrainOrder(order.ID)
	return order, nil
}

func createOrderLocked(tx *gorm.DB, body *types.CreateOrderRequestBody, channel *models.SalesChannel) (*models.Order, error) {
	currency := "USD"
	var channelId *uint
	if channel != nil {
		currency = channel.Currency
		channelId = &channel.ID
	}

	order := &models.Order{
		Name:           body.Name,
		Email:          body.Email,
		Phone:          body.Phone,
		Comments:       body.Comments,
		Currency:       currency,
		Status:         types.ORDER_PENDING,
		SalesChannelID: channelId,
	}

	var items []models.OrderItem
	var total float64
	for _, input := range body.Items {
		var category models.Category
		if err := db.ForUpdate(tx).First(&category, input.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, types.CategoryNotFoundError(input.CategoryID, input.EventID)
			}
			return nil, err
		}
		if category.EventID != input.EventID {
			return nil, types.CategoryEventMismatchError(category.ID, input.EventID)
		}
		var event models.Event
		if err := tx.Preload("Tournament").Where("id = ? AND is_active = ?", input.EventID, true).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, types.EventNotFoundError(input.EventID)
			}
			return nil, err
		}
		if err := ReserveSeats(tx, &category, input.Quantity); err != nil {
			return nil, err
		}
		subtotal := category.Price * float64(input.Quantity)
		total += subtotal
		items = append(items, models.OrderItem{
			EventID:      event.ID,
			CategoryID:   category.ID,
			Quantity:     input.Quantity,
			UnitPrice:    category.Price,
			Subtotal:     subtotal,
			EventTitle:   event.Title,
			EventDate:    event.Date,
			EventMonth:   event.Month,
			EventDay:     event.Day,
			EventTime:    event.Time,
			CategoryName: category.Name,
			Venue:        event.Venue(),
		})
	}

	order.TotalAmount = total
	order.StripeAmountCents = utils.AmountToSmallestUnit(total, currency)
	order.Items = items

	number, err := nextOrderNumber(tx)
	if err != nil {
		return nil, err
	}
	order.OrderNumber = number
	if err := tx.Create(order).Error; err != nil {
		return nil, err
	}

	entry := models.OrderStateLog{
		OrderID:    order.ID,
		FromStatus: "",
		ToStatus:   types.ORDER_PENDING,
		Source:     types.SOURCE_API,
		Note:       "order created",
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	if err := EnqueueNotification(tx, order.ID, types.NOTIFY_ORDER_CREATED); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder loads an order with its items.
func GetOrder(orderId string) (*models.Order, error) {
	id, err := uuid.Parse(orderId)
	if err != nil {
		return nil, types.OrderNotFoundError(orderId)
	}
	var order models.Order
	err = db.GetDb().Preload("Items").Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.OrderNotFoundError(orderId)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder moves an order to cancelled and returns its seats to inventory.
// Cancelling an already-cancelled order is a no-op; paid orders cannot be
// cancelled through this path, refunds are a separate admin concern.
func CancelOrder(orderId string, source types.StateSource, note string) (*models.Order, error) {
	conn := db.GetDb()
	var order models.Order
	var eventIds []uint
	err := conn.Transaction(func(tx *gorm.DB) error {
		id, err := uuid.Parse(orderId)
		if err != nil {
			return types.OrderNotFoundError(orderId)
		}
		err = db.ForUpdate(tx).Preload("Items").Where("id = ?", id).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.OrderNotFoundError(orderId)
		}
		if err != nil {
			return err
		}
		if order.Status == types.ORDER_CANCELLED {
			return nil
		}
		if order.Status == types.ORDER_PAID || order.Status == types.ORDER_REFUNDED {
			return types.InvalidStatusError(order.Status)
		}
		changed, err := ChangeStatus(tx, &order, types.ORDER_CANCELLED, source, note)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		for _, item := range order.Items {
			if err := ReleaseSeats(tx, item.CategoryID, item.Quantity); err != nil {
				return err
			}
			eventIds = append(eventIds, item.EventID)
		}
		for _, eventId := range eventIds {
			if err := RecalculateMinPrice(tx, eventId); err != nil {
				return err
			}
		}
		return EnqueueNotification(tx, order.ID, types.NOTIFY_ORDER_CANCELLED)
	})
	if err != nil {
		return nil, err
	}
	for _, eventId := range eventIds {
		invalidateEventCache(eventId)
	}
	DrainOrder(order.ID)
	return &order, nil
}

// CreateOrderCheckoutSession creates a hosted checkout session for a payable
// order and records the session id on the order.
func CreateOrderCheckoutSession(orderId string) (*models.Order, string, error) {
	order, err := GetOrder(orderId)
	if err != nil {
		return nil, "", err
	}
	if !order.Status.Payable() {
		return nil, "", types.InvalidStatusError(order.Status)
	}
	session, err := createCheckoutSession(order)
	if err != nil {
		return nil, "", err
	}
	return order, session, nil
}

func createCheckoutSession(order *models.Order) (string, error) {
	gw := lib.GetPaymentGateway()
	session, err := gw.CreateCheckoutSession(context.Background(), order)
	if err != nil {
		return "", err
	}
	err = db.GetDb().Model(order).Update("checkout_session_id", session.ID).Error
	if err != nil {
		log.Printf("error persisting checkout session id for order %s: %s\n", order.OrderNumber, err.Error())
	}
	return session.URL, nil
}

func markOrderPaid(tx *gorm.DB, order *models.Order, paymentIntentId string, source types.StateSource, note string) error {
	now := time.Now()
	updates := map[string]any{
		"payment_intent_id": paymentIntentId,
		"paid_at":           now,
	}
	if err := tx.Model(order).Updates(updates).Error; err != nil {
		return err
	}
	order.PaymentIntentID = &paymentIntentId
	order.PaidAt = &now
	if _, err := ChangeStatus(tx, order, types.ORDER_PAID, source, note); err != nil {
		return err
	}
	return EnqueueNotification(tx, order.ID, types.NOTIFY_ORDER_PAID)
}
