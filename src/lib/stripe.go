package lib

import (
	"context"
	"fmt"
	"os"
	"strings"

	"boxoffice/src/models"
	"boxoffice/src/utils"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CheckoutSession is the subset of the hosted checkout session the rest of
// the system needs: where to send the customer and which session to correlate.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway is the outbound payment processor capability. Checkout
// sessions are built from frozen order data only; intent retrieval is
// read-only and used by manual reconciliation.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order) (*CheckoutSession, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

var gateway PaymentGateway

func GetPaymentGateway() PaymentGateway {
	if gateway != nil {
		return gateway
	}
	gateway = &StripeGateway{}
	return gateway
}

// NewPaymentGateway replaces the gateway with a custom implementation.
func NewPaymentGateway(g PaymentGateway) {
	gateway = g
}

type StripeGateway struct{}

// CreateCheckoutSession builds one line item per order item from the order's
// frozen currency and unit prices; the catalog is never re-read. The
// idempotency key is derived from the order id so a retried call returns the
// same session instead of creating a duplicate. The metadata carries the
// frozen expected amount and currency for webhook validation.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, order *models.Order) (*CheckoutSession, error) {
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("order %s has no items", order.OrderNumber)
	}
	currency := strings.ToLower(order.Currency)
	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(utils.AmountToSmallestUnit(item.UnitPrice, order.Currency)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name:        stripe.String(fmt.Sprintf("%s - %s", item.EventTitle, item.CategoryName)),
					Description: stripe.String(fmt.Sprintf("%s %s | %s | %s", item.EventDate, item.EventMonth, item.EventTime, item.Venue)),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	frontendURL := strings.TrimRight(os.Getenv("FRONTEND_URL"), "/")
	params := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(fmt.Sprintf("%s/checkout/%s?status=success&session_id={CHECKOUT_SESSION_ID}", frontendURL, order.ID)),
		CancelURL:          stripe.String(fmt.Sprintf("%s/checkout/%s?status=cancelled", frontendURL, order.ID)),
		CustomerEmail:      stripe.String(order.Email),
		Metadata: map[string]string{
			"order_id":              order.ID.String(),
			"order_number":          order.OrderNumber,
			"expected_amount_cents": fmt.Sprintf("%d", order.StripeAmountCents),
			"expected_currency":     order.Currency,
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
			},
			ReceiptEmail: stripe.String(order.Email),
		},
	}
	params.SetIdempotencyKey(fmt.Sprintf("checkout_session_order_%s", order.ID))

	sc := GetStripeClient()
	session, err := sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// RetrievePaymentIntent only reports processor state; it never creates or
// mutates payment state.
func (g *StripeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	sc := GetStripeClient()
	return sc.V1PaymentIntents.Retrieve(ctx, id, nil)
}
