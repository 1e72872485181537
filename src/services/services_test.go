package services

import (
	"context"
	"fmt"
	"testing"

	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	err = conn.AutoMigrate(
		&models.Tournament{},
		&models.Event{},
		&models.Category{},
		&models.SalesChannel{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStateLog{},
		&models.WebhookEvent{},
		&models.PaymentLog{},
		&models.NotificationOutbox{},
	)
	require.NoError(t, err)
	db.NewDB(conn)
	return conn
}

type catalogFixture struct {
	Tournament models.Tournament
	Event      models.Event
	CatA       models.Category
	CatB       models.Category
	Channel    models.SalesChannel
}

func seedCatalog(t *testing.T, conn *gorm.DB) *catalogFixture {
	f := &catalogFixture{}
	f.Tournament = models.Tournament{
		Name:  "Dubai Duty Free Tennis Championships",
		Slug:  "dubai-duty-free-tennis-championships",
		Venue: "Dubai Duty Free Tennis Stadium",
	}
	require.NoError(t, conn.Create(&f.Tournament).Error)
	f.Event = models.Event{
		TournamentID: f.Tournament.ID,
		Title:        "Day 1 - Round 1",
		Slug:         "day-1-round-1",
		Date:         "16",
		Day:          "Monday",
		Month:        "February",
		Time:         "14:00",
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&f.Event).Error)
	f.CatA = models.Category{
		EventID:        f.Event.ID,
		Name:           "Premium",
		Price:          100,
		SeatsTotal:     10,
		SeatsAvailable: 10,
		IsActive:       true,
		ShowOnFrontend: true,
	}
	require.NoError(t, conn.Create(&f.CatA).Error)
	f.CatB = models.Category{
		EventID:        f.Event.ID,
		Name:           "Standard",
		Price:          60,
		SeatsTotal:     20,
		SeatsAvailable: 20,
		IsActive:       true,
		ShowOnFrontend: true,
	}
	require.NoError(t, conn.Create(&f.CatB).Error)
	f.Channel = models.SalesChannel{
		Name:     "Dubai Tennis Tickets",
		Domain:   "dubaitennistickets.com",
		Currency: "USD",
		IsActive: true,
	}
	require.NoError(t, conn.Create(&f.Channel).Error)
	return f
}

func validOrderBody(f *catalogFixture, quantity uint) *types.CreateOrderRequestBody {
	return &types.CreateOrderRequestBody{
		Name:  "Jamie Rivera",
		Email: "jamie@example.com",
		Phone: "+971501234567",
		Items: []types.OrderItemInput{
			{EventID: f.Event.ID, CategoryID: f.CatA.ID, Quantity: quantity},
		},
	}
}

type notifierCall struct {
	OrderID      uuid.UUID
	OrderNumber  string
	Notification types.NotificationType
}

type fakeNotifier struct {
	Calls []notifierCall
	Err   error
}

func (n *fakeNotifier) Notify(order *models.Order, notificationType types.NotificationType) error {
	n.Calls = append(n.Calls, notifierCall{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Notification: notificationType,
	})
	return n.Err
}

type fakeGateway struct {
	Session    *lib.CheckoutSession
	SessionErr error
	Intent     *stripe.PaymentIntent
	IntentErr  error
	Retrieved  []string
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, order *models.Order) (*lib.CheckoutSession, error) {
	if g.SessionErr != nil {
		return nil, g.SessionErr
	}
	if g.Session != nil {
		return g.Session, nil
	}
	return &lib.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.stripe.com/pay/cs_test_123"}, nil
}

func (g *fakeGateway) RetrievePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	g.Retrieved = append(g.Retrieved, id)
	if g.IntentErr != nil {
		return nil, g.IntentErr
	}
	return g.Intent, nil
}
