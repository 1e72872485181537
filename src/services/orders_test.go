package services

import (
	"testing"

	"boxoffice/src/models"
	"boxoffice/src/types"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type OrdersTestSuite struct {
	suite.Suite
	DB       *gorm.DB
	Fixture  *catalogFixture
	Notifier *fakeNotifier
}

func (s *OrdersTestSuite) SetupTest() {
	s.DB = newTestDB(s.T())
	s.Fixture = seedCatalog(s.T(), s.DB)
	s.Notifier = &fakeNotifier{}
	SetNotifier(s.Notifier)
}

func (s *OrdersTestSuite) TestCreateOrderFreezesTotals() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 4), "dubaitennistickets.com")
	s.Require().NoError(err)

	s.Equal(float64(400), order.TotalAmount)
	s.Equal(int64(40000), order.StripeAmountCents)
	s.Equal("USD", order.Currency)
	s.Equal(types.ORDER_PENDING, order.Status)
	s.Require().Len(order.Items, 1)
	s.Equal(float64(100), order.Items[0].UnitPrice)
	s.Equal(float64(400), order.Items[0].Subtotal)
	s.Equal("Day 1 - Round 1", order.Items[0].EventTitle)
	s.Equal("Premium", order.Items[0].CategoryName)
	s.Equal("Dubai Duty Free Tennis Stadium", order.Items[0].Venue)

	var category models.Category
	s.Require().NoError(s.DB.First(&category, s.Fixture.CatA.ID).Error)
	s.Equal(uint(6), category.SeatsAvailable)
}

func (s *OrdersTestSuite) TestCreateOrderTwoItemTotals() {
	vip := models.Category{
		EventID:        s.Fixture.Event.ID,
		Name:           "VIP",
		Price:          200,
		SeatsTotal:     5,
		SeatsAvailable: 5,
		IsActive:       true,
		ShowOnFrontend: true,
	}
	s.Require().NoError(s.DB.Create(&vip).Error)

	body := validOrderBody(s.Fixture, 2)
	body.Items = append(body.Items, types.OrderItemInput{
		EventID: s.Fixture.Event.ID, CategoryID: vip.ID, Quantity: 1,
	})

	order, err := CreateOrder(body, "")
	s.Require().NoError(err)
	s.Equal(float64(400), order.TotalAmount)
	s.Equal(int64(40000), order.StripeAmountCents)
	s.Require().Len(order.Items, 2)
}

func (s *OrdersTestSuite) TestCreateOrderNumberSequence() {
	first, err := CreateOrder(validOrderBody(s.Fixture, 1), "")
	s.Require().NoError(err)
	second, err := CreateOrder(validOrderBody(s.Fixture, 1), "")
	s.Require().NoError(err)

	s.Equal("DT/1001", first.OrderNumber)
	s.Equal("DT/1002", second.OrderNumber)
}

func (s *OrdersTestSuite) TestCreateOrderRejectsOverselling() {
	_, err := CreateOrder(validOrderBody(s.Fixture, 11), "")
	s.Require().Error(err)
	serr := &types.ServiceError{}
	s.Require().ErrorAs(err, &serr)
	s.Equal(types.ErrCodeInsufficientSeats, serr.Code)

	// The failed attempt must not leak a partial reservation.
	var category models.Category
	s.Require().NoError(s.DB.First(&category, s.Fixture.CatA.ID).Error)
	s.Equal(uint(10), category.SeatsAvailable)
	var count int64
	s.DB.Model(&models.Order{}).Count(&count)
	s.Zero(count)
}

func (s *OrdersTestSuite) TestMultiItemFailureRollsBackAllReservations() {
	body := validOrderBody(s.Fixture, 2)
	body.Items = append(body.Items, types.OrderItemInput{
		EventID: s.Fixture.Event.ID, CategoryID: s.Fixture.CatB.ID, Quantity: 21,
	})

	_, err := CreateOrder(body, "")
	serr := &types.ServiceError{}
	s.Require().ErrorAs(err, &serr)
	s.Equal(types.ErrCodeInsufficientSeats, serr.Code)

	// No item of a rejected cart may hold seats.
	var catA, catB models.Category
	s.Require().NoError(s.DB.First(&catA, s.Fixture.CatA.ID).Error)
	s.Require().NoError(s.DB.First(&catB, s.Fixture.CatB.ID).Error)
	s.Equal(uint(10), catA.SeatsAvailable)
	s.Equal(uint(20), catB.SeatsAvailable)
}

func (s *OrdersTestSuite) TestCreateOrderSellsLastSeats() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 10), "")
	s.Require().NoError(err)
	s.Equal(float64(1000), order.TotalAmount)

	var category models.Category
	s.Require().NoError(s.DB.First(&category, s.Fixture.CatA.ID).Error)
	s.Zero(category.SeatsAvailable)

	// Sold out now.
	_, err = CreateOrder(validOrderBody(s.Fixture, 1), "")
	serr := &types.ServiceError{}
	s.Require().ErrorAs(err, &serr)
	s.Equal(types.ErrCodeCategoryNotPurchasable, serr.Code)
}

func (s *OrdersTestSuite) TestCreateOrderRejectsClosedCategory() {
	s.Require().NoError(s.DB.Model(&models.Category{}).Where("id = ?", s.Fixture.CatA.ID).Update("is_active", false).Error)

	_, err := CreateOrder(validOrderBody(s.Fixture, 1), "")
	serr := &types.ServiceError{}
	s.Require().ErrorAs(err, &serr)
	s.Equal(types.ErrCodeCategoryNotPurchasable, serr.Code)
}

func (s *OrdersTestSuite) TestCreateOrderRejectsCategoryEventMismatch() {
	other := models.Event{TournamentID: s.Fixture.Tournament.ID, Title: "Day 2", Slug: "day-2", IsActive: true}
	s.Require().NoError(s.DB.Create(&other).Error)

	body := validOrderBody(s.Fixture, 1)
	body.Items[0].EventID = other.ID

	_, err := CreateOrder(body, "")
	serr := &types.ServiceError{}
	s.Require().ErrorAs(err, &serr)
	s.Equal(types.ErrCodeCategoryEventMismatch, serr.Code)
}

func (s *OrdersTestSuite) TestCreateOrderRejectsUnknownEvent() {
	body := validOrderBody(s.Fixture, 1)
	body.Items[0].EventID = 9999

	_, err := CreateOrder(body, "")
	serr := &types.ServiceError{}
	s.Require().ErrorAs(err, &serr)
	s.Equal(types.ErrCodeEventNotFound, serr.Code)
}

func (s *OrdersTestSuite) TestCreateOrderWritesInitialStateLog() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 2), "")
	s.Require().NoError(err)

	var logs []models.OrderStateLog
	s.Require().NoError(s.DB.Where("order_id = ?", order.ID).Order("id ASC").Find(&logs).Error)
	s.Require().Len(logs, 1)
	s.Equal(types.OrderStatus(""), logs[0].FromStatus)
	s.Equal(types.ORDER_PENDING, logs[0].ToStatus)
	s.Equal(types.SOURCE_API, logs[0].Source)
}

func (s *OrdersTestSuite) TestCreateOrderNotifies() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 1), "")
	s.Require().NoError(err)

	s.Require().Len(s.Notifier.Calls, 1)
	s.Equal(order.ID, s.Notifier.Calls[0].OrderID)
	s.Equal(types.NOTIFY_ORDER_CREATED, s.Notifier.Calls[0].Notification)
}

func (s *OrdersTestSuite) TestCancelOrderReleasesSeats() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 4), "")
	s.Require().NoError(err)

	cancelled, err := CancelOrder(order.ID.String(), types.SOURCE_ADMIN, "customer request")
	s.Require().NoError(err)
	s.Equal(types.ORDER_CANCELLED, cancelled.Status)

	var category models.Category
	s.Require().NoError(s.DB.First(&category, s.Fixture.CatA.ID).Error)
	s.Equal(uint(10), category.SeatsAvailable)
}

func (s *OrdersTestSuite) TestCancelOrderTwiceReleasesOnce() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 4), "")
	s.Require().NoError(err)

	_, err = CancelOrder(order.ID.String(), types.SOURCE_ADMIN, "first")
	s.Require().NoError(err)
	_, err = CancelOrder(order.ID.String(), types.SOURCE_ADMIN, "second")
	s.Require().NoError(err)

	var category models.Category
	s.Require().NoError(s.DB.First(&category, s.Fixture.CatA.ID).Error)
	s.Equal(uint(10), category.SeatsAvailable)

	var logs int64
	s.DB.Model(&models.OrderStateLog{}).
		Where("order_id = ? AND to_status = ?", order.ID, types.ORDER_CANCELLED).
		Count(&logs)
	s.Equal(int64(1), logs)
}

func (s *OrdersTestSuite) TestCancelPaidOrderRejected() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 1), "")
	s.Require().NoError(err)
	s.Require().NoError(s.DB.Transaction(func(tx *gorm.DB) error {
		return markOrderPaid(tx, order, "pi_test_1", types.SOURCE_WEBHOOK, "test")
	}))

	_, err = CancelOrder(order.ID.String(), types.SOURCE_ADMIN, "too late")
	serr := &types.ServiceError{}
	s.Require().ErrorAs(err, &serr)
	s.Equal(types.ErrCodeInvalidStatus, serr.Code)
}

func (s *OrdersTestSuite) TestChangeStatusIsNoopOnSameStatus() {
	order, err := CreateOrder(validOrderBody(s.Fixture, 1), "")
	s.Require().NoError(err)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		changed, err := ChangeStatus(tx, order, types.ORDER_PENDING, types.SOURCE_SYSTEM, "noop")
		s.False(changed)
		return err
	})
	s.Require().NoError(err)

	var logs int64
	s.DB.Model(&models.OrderStateLog{}).Where("order_id = ?", order.ID).Count(&logs)
	s.Equal(int64(1), logs)
}

func (s *OrdersTestSuite) TestChannelCurrencyFrozenOnOrder() {
	aed := models.SalesChannel{Name: "UAE Local", Domain: "tickets.ae", Currency: "AED", IsActive: true}
	s.Require().NoError(s.DB.Create(&aed).Error)

	order, err := CreateOrder(validOrderBody(s.Fixture, 2), "tickets.ae")
	s.Require().NoError(err)
	s.Equal("AED", order.Currency)
	s.Equal(&aed.ID, order.SalesChannelID)

	// Channel currency changes do not touch existing orders.
	s.Require().NoError(s.DB.Model(&aed).Update("currency", "USD").Error)
	reloaded, err := GetOrder(order.ID.String())
	s.Require().NoError(err)
	s.Equal("AED", reloaded.Currency)
}

func (s *OrdersTestSuite) TestZeroDecimalCurrencyOrderKeepsWholeUnits() {
	jpy := models.SalesChannel{Name: "Japan Tickets", Domain: "tickets.jp", Currency: "JPY", IsActive: true}
	s.Require().NoError(s.DB.Create(&jpy).Error)

	order, err := CreateOrder(validOrderBody(s.Fixture, 2), "tickets.jp")
	s.Require().NoError(err)
	s.Equal("JPY", order.Currency)
	s.Equal(float64(200), order.TotalAmount)

	// No x100 multiplier for zero-decimal currencies.
	s.Equal(int64(200), order.StripeAmountCents)
}

func TestOrdersSuite(t *testing.T) {
	suite.Run(t, new(OrdersTestSuite))
}
