package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/model"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fakeCustomers struct {
	customers map[uint]*Customer
	err       error
}

func (f *fakeCustomers) GetCustomer(ctx context.Context, id uint) (*Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.customers[id]
	if !ok {
		return nil, apperror.NotFound("customer not found")
	}
	return c, nil
}

type fakePrices struct {
	prices map[uint]decimal.Decimal
	calls  int
}

func (f *fakePrices) ResolvePrice(ctx context.Context, productID, customerID uint, quantity int) (*Price, error) {
	f.calls++
	p, ok := f.prices[productID]
	if !ok {
		return &Price{PriceType: PriceTypeUnpriced}, nil
	}
	id := productID * 10
	return &Price{Price: p, PriceType: "STANDARD", FinalPrice: p, AppliedPriceID: &id}, nil
}

type published struct {
	key     string
	payload interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{routingKey, payload})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fixture struct {
	db         *gorm.DB
	orders     *OrderService
	quotations *QuotationService
	customers  *fakeCustomers
	prices     *fakePrices
	publisher  *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(&config.DBConfig{Driver: "sqlite", DBName: ":memory:", LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	f := &fixture{
		customers: &fakeCustomers{customers: map[uint]*Customer{
			1: {ID: 1, Name: "Acme", Currency: "USD", IsActive: true},
			2: {ID: 2, Name: "Dormant", IsActive: false},
		}},
		prices: &fakePrices{prices: map[uint]decimal.Decimal{
			100: decimal.NewFromInt(100),
			200: decimal.NewFromInt(50),
		}},
		publisher: &fakePublisher{},
		db:        db,
	}
	f.orders = NewOrderService(db, f.customers, f.prices, f.publisher)
	f.orders.now = func() time.Time { return fixedNow }
	f.quotations = NewQuotationService(db, f.orders)
	return f
}

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func twoItemOrder() CreateOrderInput {
	return CreateOrderInput{
		CustomerID:  1,
		WarehouseID: 3,
		Items: []OrderItemInput{
			{ProductID: 100, Quantity: 3},
			{ProductID: 200, Quantity: 1},
		},
		TaxAmount:      dec(10),
		ShippingAmount: dec(5),
		DiscountAmount: dec(20),
	}
}

var errBroker = errors.New("broker down")
