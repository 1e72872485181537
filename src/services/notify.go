package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"
)

// Notifier delivers one notification for an order. Implementations must be
// safe to call repeatedly with the same arguments; retry logic lives in the
// outbox, not here.
type Notifier interface {
	Notify(order *models.Order, notificationType types.NotificationType) error
}

var notifier Notifier

func GetNotifier() Notifier {
	if notifier != nil {
		return notifier
	}
	notifier = &defaultNotifier{telegram: lib.NewTelegramNotifier()}
	return notifier
}

// SetNotifier replaces the delivery backend, used by tests.
func SetNotifier(n Notifier) {
	notifier = n
}

// defaultNotifier delivers over Telegram and email. Telegram failure is
// returned so the outbox can retry; email is best-effort on top of it.
type defaultNotifier struct {
	telegram *lib.TelegramNotifier
}

func (n *defaultNotifier) Notify(order *models.Order, notificationType types.NotificationType) error {
	text := buildNotificationText(order, notificationType)
	if err := n.telegram.SendMessage(text); err != nil {
		return err
	}
	if notificationType == types.NOTIFY_ORDER_PAID && order.Email != "" {
		if err := sendOrderEmail(order); err != nil {
			log.Printf("error sending order email for %s: %s\n", order.OrderNumber, err.Error())
		}
	}
	return nil
}

func buildNotificationText(order *models.Order, notificationType types.NotificationType) string {
	var b strings.Builder
	switch notificationType {
	case types.NOTIFY_ORDER_CREATED:
		b.WriteString(fmt.Sprintf("🆕 <b>New order %s</b>\n", order.OrderNumber))
	case types.NOTIFY_ORDER_PAID:
		b.WriteString(fmt.Sprintf("✅ <b>Order %s paid</b>\n", order.OrderNumber))
	case types.NOTIFY_ORDER_CANCELLED:
		b.WriteString(fmt.Sprintf("❌ <b>Order %s cancelled</b>\n", order.OrderNumber))
	default:
		b.WriteString(fmt.Sprintf("<b>Order %s: %s</b>\n", order.OrderNumber, notificationType))
	}
	b.WriteString(fmt.Sprintf("Customer: %s (%s)\n", order.Name, order.Email))
	b.WriteString(fmt.Sprintf("Total: %.2f %s\n", order.TotalAmount, order.Currency))
	for _, item := range order.Items {
		b.WriteString(fmt.Sprintf("• %s - %s x%d\n", item.EventTitle, item.CategoryName, item.Quantity))
	}
	return b.String()
}

func sendOrderEmail(order *models.Order) error {
	var lines strings.Builder
	for _, item := range order.Items {
		lines.WriteString(fmt.Sprintf("<li>%s - %s, %d x %.2f %s</li>", item.EventTitle, item.CategoryName, item.Quantity, item.UnitPrice, order.Currency))
	}
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your order <b>%s</b> has been paid.</p><ul>%s</ul><p>Total: <b>%.2f %s</b></p>",
		order.Name, order.OrderNumber, lines.String(), order.TotalAmount, order.Currency,
	)
	return lib.SendMail(&lib.SendMailInput{
		From:     os.Getenv("SMTP_FROM"),
		FromName: os.Getenv("SMTP_FROM_NAME"),
		To:       []string{order.Email},
		Subject:  fmt.Sprintf("Order %s confirmed", order.OrderNumber),
		Body:     body,
		Html:     true,
	})
}
