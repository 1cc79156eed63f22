package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/messaging"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/model"
)

func TestCreateOrderTotals(t *testing.T) {
	f := newFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.NoError(t, err)

	assert.Equal(t, "350", order.Subtotal.String())
	assert.Equal(t, "345", order.TotalAmount.String())
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Equal(t, "USD", order.Currency)
	assert.Regexp(t, `^SO-\d{13}-\d{3}$`, order.OrderNumber)

	stored, err := f.orders.GetOrder(context.Background(), 9, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	sum := decimal.Zero
	for _, item := range stored.Items {
		assert.True(t, item.FinalPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Equal(item.LineTotal))
		sum = sum.Add(item.LineTotal)
	}
	assert.True(t, sum.Equal(stored.Subtotal))
	assert.True(t, stored.Subtotal.Add(stored.TaxAmount).Add(stored.ShippingAmount).Sub(stored.DiscountAmount).Equal(stored.TotalAmount))
}

func TestCreateOrderPublishesOrderCreated(t *testing.T) {
	f := newFixture(t)

	order, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.NoError(t, err)

	require.Len(t, f.publisher.msgs, 1)
	assert.Equal(t, messaging.TopicOrderCreated, f.publisher.msgs[0].key)
	evt, ok := f.publisher.msgs[0].payload.(messaging.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID, evt.OrderID)
	assert.Equal(t, order.OrderNumber, evt.OrderNumber)
	assert.Equal(t, uint(3), evt.WarehouseID)
	assert.Equal(t, uint(9), evt.TenantID)
	assert.Equal(t, []messaging.OrderCreatedItem{{ProductID: 100, Quantity: 3}, {ProductID: 200, Quantity: 1}}, evt.Items)
	assert.Equal(t, "345", evt.TotalAmount.String())
}

func TestCreateOrderKeepsOrderWhenPublishFails(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errBroker

	order, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.NoError(t, err)

	_, err = f.orders.GetOrder(context.Background(), 9, order.ID)
	assert.NoError(t, err)
}

func TestCreateOrderWithoutPublisher(t *testing.T) {
	f := newFixture(t)
	f.orders.publisher = nil

	_, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	assert.NoError(t, err)
}

func TestCreateOrderRejectsUnpricedItem(t *testing.T) {
	f := newFixture(t)
	in := twoItemOrder()
	in.Items = append(in.Items, OrderItemInput{ProductID: 300, Quantity: 1})

	_, err := f.orders.CreateOrder(context.Background(), 9, 4, in)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Contains(t, apperror.Message(err), "product 300")

	orders, total, err := f.orders.ListOrders(context.Background(), 9, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Zero(t, total)
	assert.Empty(t, f.publisher.msgs)
}

func TestCreateOrderCustomerErrors(t *testing.T) {
	f := newFixture(t)

	in := twoItemOrder()
	in.CustomerID = 77
	_, err := f.orders.CreateOrder(context.Background(), 9, 4, in)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Equal(t, "customer not found", apperror.Message(err))
	assert.Zero(t, f.prices.calls)

	in.CustomerID = 2
	_, err = f.orders.CreateOrder(context.Background(), 9, 4, in)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	f.customers.err = apperror.Upstream(errBroker, "failed to validate customer 1")
	_, err = f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	assert.True(t, apperror.Is(err, apperror.KindUpstream))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(*CreateOrderInput){
		"no customer":        func(in *CreateOrderInput) { in.CustomerID = 0 },
		"no warehouse":       func(in *CreateOrderInput) { in.WarehouseID = 0 },
		"no items":           func(in *CreateOrderInput) { in.Items = nil },
		"zero quantity":      func(in *CreateOrderInput) { in.Items[0].Quantity = 0 },
		"negative tax":       func(in *CreateOrderInput) { in.TaxAmount = dec(-1) },
		"discount too large": func(in *CreateOrderInput) { in.DiscountAmount = dec(1000) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := twoItemOrder()
			mutate(&in)
			_, err := f.orders.CreateOrder(context.Background(), 9, 4, in)
			assert.True(t, apperror.Is(err, apperror.KindValidation), err)
		})
	}
}

func TestCreateOrderRollsBackWhenItemsFail(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Migrator().DropTable(&model.SalesOrderItem{}))

	_, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInternal))

	var orders int64
	require.NoError(t, f.db.Model(&model.SalesOrder{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Empty(t, f.publisher.msgs)
}

func TestCreateOrderRetriesNumberCollision(t *testing.T) {
	f := newFixture(t)
	draws := []int{7, 7, 8}
	f.orders.random = func(int) int {
		n := draws[0]
		draws = draws[1:]
		return n
	}

	first, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.NoError(t, err)
	second, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("SO-%d-007", fixedNow.UnixMilli()), first.OrderNumber)
	assert.Equal(t, fmt.Sprintf("SO-%d-008", fixedNow.UnixMilli()), second.OrderNumber)

	stored, err := f.orders.GetOrder(context.Background(), 9, second.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
}

func TestCreateOrderGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t)
	f.orders.random = func(int) int { return 1 }

	_, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.orders.CreateOrder(ctx, 9, 4, twoItemOrder())
	require.NoError(t, err)

	_, err = f.orders.ShipOrder(ctx, 9, order.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	approved, err := f.orders.ApproveOrder(ctx, 9, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, approved.Status)

	shipped, err := f.orders.ShipOrder(ctx, 9, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedDate)

	require.Len(t, f.publisher.msgs, 2)
	assert.Equal(t, messaging.TopicOrderShipped, f.publisher.msgs[1].key)
	evt := f.publisher.msgs[1].payload.(messaging.OrderShippedEvent)
	assert.Equal(t, "USD", evt.Currency)
	assert.Equal(t, fixedNow, evt.ShippedDate)
	require.Len(t, evt.Items, 2)
	assert.Equal(t, "Product 100", evt.Items[0].Description)
	assert.Equal(t, "100", evt.Items[0].UnitPrice.String())

	_, err = f.orders.CancelOrder(ctx, 9, order.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	delivered, err := f.orders.DeliverOrder(ctx, 9, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, delivered.Status)

	_, err = f.orders.ApproveOrder(ctx, 10, order.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCancelPendingOrder(t *testing.T) {
	f := newFixture(t)
	order, err := f.orders.CreateOrder(context.Background(), 9, 4, twoItemOrder())
	require.NoError(t, err)

	cancelled, err := f.orders.CancelOrder(context.Background(), 9, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)

	list, total, err := f.orders.ListOrders(context.Background(), 9, OrderFilter{Status: model.OrderStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}
