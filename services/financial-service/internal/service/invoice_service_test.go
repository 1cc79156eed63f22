package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/messaging"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
	gormlogger "gorm.io/gorm/logger"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newInvoiceService(t *testing.T) *InvoiceService {
	t.Helper()
	db, err := database.Open(&config.DBConfig{Driver: "sqlite", DBName: ":memory:", LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	s := NewInvoiceService(db, &config.FinanceConfig{DefaultTaxPercent: 10, PaymentTermDays: 30})
	s.now = func() time.Time { return fixedNow }
	return s
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dateOf(t time.Time) string { return t.UTC().Format("2006-01-02") }

func simpleInvoice(unitPrice string, qty int) CreateInvoiceInput {
	return CreateInvoiceInput{
		CustomerID: 5,
		Items:      []InvoiceItemInput{{Description: "Consulting", Quantity: qty, UnitPrice: d(unitPrice)}},
	}
}

func TestCreateInvoiceAmounts(t *testing.T) {
	s := newInvoiceService(t)
	productID := uint(7)
	zeroTax := decimal.Zero

	inv, err := s.CreateInvoice(context.Background(), 1, nil, CreateInvoiceInput{
		CustomerID: 5,
		Items: []InvoiceItemInput{
			{ProductID: &productID, Quantity: 2, UnitPrice: d("100"), DiscountPercent: d("10")},
			{Description: "Delivery", Quantity: 1, UnitPrice: d("30"), TaxPercent: &zeroTax},
		},
	})
	require.NoError(t, err)

	first := inv.Items[0]
	assert.Equal(t, "Product 7", first.Description)
	assert.Equal(t, "20", first.DiscountAmount.String())
	assert.Equal(t, "180", first.Subtotal.String())
	assert.Equal(t, "18", first.TaxAmount.String())
	assert.Equal(t, "198", first.Total.String())

	assert.Equal(t, "210", inv.Subtotal.String())
	assert.Equal(t, "18", inv.TaxAmount.String())
	assert.Equal(t, "20", inv.DiscountAmount.String())
	assert.Equal(t, "228", inv.TotalAmount.String())
	assert.True(t, inv.BalanceAmount.Equal(inv.TotalAmount))
	assert.Equal(t, model.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, model.InvoiceTypeSales, inv.InvoiceType)
	assert.Equal(t, "THB", inv.Currency)
	assert.Equal(t, "2024-03-31", dateOf(inv.DueDate))
	assert.Regexp(t, `^INV-\d{13}-\d{3}$`, inv.InvoiceNumber)
}

func TestCreateInvoiceOverrides(t *testing.T) {
	s := newInvoiceService(t)
	in := simpleInvoice("100", 1)
	subtotal, tax := d("90"), d("0")
	in.Subtotal, in.TaxAmount = &subtotal, &tax

	inv, err := s.CreateInvoice(context.Background(), 1, nil, in)
	require.NoError(t, err)
	assert.Equal(t, "90", inv.TotalAmount.String())
	assert.Equal(t, "90", inv.BalanceAmount.String())
}

func TestCreateInvoiceValidation(t *testing.T) {
	s := newInvoiceService(t)
	early := fixedNow.AddDate(0, 0, -1)
	cases := map[string]func(*CreateInvoiceInput){
		"no customer":       func(in *CreateInvoiceInput) { in.CustomerID = 0 },
		"no items":          func(in *CreateInvoiceInput) { in.Items = nil },
		"bad type":          func(in *CreateInvoiceInput) { in.InvoiceType = "RECEIPT" },
		"zero quantity":     func(in *CreateInvoiceInput) { in.Items[0].Quantity = 0 },
		"negative price":    func(in *CreateInvoiceInput) { in.Items[0].UnitPrice = d("-1") },
		"discount over 100": func(in *CreateInvoiceInput) { in.Items[0].DiscountPercent = d("101") },
		"no description":    func(in *CreateInvoiceInput) { in.Items[0].Description = " " },
		"due before date":   func(in *CreateInvoiceInput) { in.DueDate = &early },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := simpleInvoice("100", 1)
			mutate(&in)
			_, err := s.CreateInvoice(context.Background(), 1, nil, in)
			assert.True(t, apperror.Is(err, apperror.KindValidation), err)
		})
	}
}

func TestRecordPaymentLifecycle(t *testing.T) {
	s := newInvoiceService(t)
	ctx := context.Background()
	inv, err := s.CreateInvoice(ctx, 1, nil, simpleInvoice("100", 2)) // 220 with tax
	require.NoError(t, err)

	_, err = s.RecordPayment(ctx, 1, inv.ID, nil, PaymentInput{Amount: d("10")})
	assert.True(t, apperror.Is(err, apperror.KindConflict), "draft takes no payments")

	_, err = s.SendInvoice(ctx, 1, inv.ID)
	require.NoError(t, err)

	inv, err = s.RecordPayment(ctx, 1, inv.ID, nil, PaymentInput{Amount: d("70.50"), Method: "TRANSFER", Reference: "TX-1"})
	require.NoError(t, err)
	assert.Equal(t, "70.5", inv.PaidAmount.String())
	assert.Equal(t, "149.5", inv.BalanceAmount.String())
	assert.Equal(t, model.InvoiceStatusSent, inv.Status)

	_, err = s.RecordPayment(ctx, 1, inv.ID, nil, PaymentInput{Amount: d("149.51")})
	assert.True(t, apperror.Is(err, apperror.KindValidation), "overpayment")
	_, err = s.RecordPayment(ctx, 1, inv.ID, nil, PaymentInput{Amount: d("0")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = s.CancelInvoice(ctx, 1, inv.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "paid invoices cannot be cancelled")

	inv, err = s.RecordPayment(ctx, 1, inv.ID, nil, PaymentInput{Amount: d("149.5")})
	require.NoError(t, err)
	assert.True(t, inv.BalanceAmount.IsZero())
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidAt)
	require.Len(t, inv.Payments, 2)
	assert.Equal(t, "TX-1", inv.Payments[0].Reference)

	_, err = s.RecordPayment(ctx, 1, inv.ID, nil, PaymentInput{Amount: d("1")})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	payments, err := s.ListPayments(ctx, 1, inv.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	_, err = s.RecordPayment(ctx, 2, inv.ID, nil, PaymentInput{Amount: d("1")})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCancelInvoice(t *testing.T) {
	s := newInvoiceService(t)
	ctx := context.Background()
	inv, err := s.CreateInvoice(ctx, 1, nil, simpleInvoice("10", 1))
	require.NoError(t, err)

	inv, err = s.CancelInvoice(ctx, 1, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusCancelled, inv.Status)
	require.NotNil(t, inv.CancelledAt)

	_, err = s.SendInvoice(ctx, 1, inv.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestMarkOverdue(t *testing.T) {
	s := newInvoiceService(t)
	ctx := context.Background()

	due := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	issued := due.AddDate(0, 0, -30)
	past := simpleInvoice("100", 1)
	past.InvoiceDate, past.DueDate = &issued, &due
	overdue, err := s.CreateInvoice(ctx, 1, nil, past)
	require.NoError(t, err)
	_, err = s.SendInvoice(ctx, 1, overdue.ID)
	require.NoError(t, err)

	draft, err := s.CreateInvoice(ctx, 1, nil, past)
	require.NoError(t, err)

	current, err := s.CreateInvoice(ctx, 1, nil, simpleInvoice("100", 1))
	require.NoError(t, err)
	_, err = s.SendInvoice(ctx, 1, current.ID)
	require.NoError(t, err)

	n, err := s.MarkOverdue(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetInvoice(ctx, 1, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusOverdue, got.Status)
	got, err = s.GetInvoice(ctx, 1, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusDraft, got.Status)

	got, err = s.RecordPayment(ctx, 1, overdue.ID, nil, PaymentInput{Amount: d("110")})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)

	n, err = s.MarkOverdue(ctx, fixedNow)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func shippedEvent() messaging.OrderShippedEvent {
	return messaging.OrderShippedEvent{
		OrderID:     42,
		OrderNumber: "SO-1704067200000-001",
		TenantID:    1,
		CustomerID:  5,
		Currency:    "USD",
		ShippedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Items: []messaging.OrderShippedItem{
			{ProductID: 100, Quantity: 3, UnitPrice: d("100"), Description: "Widget"},
			{ProductID: 200, Quantity: 1, UnitPrice: d("50"), Description: "Gadget"},
		},
	}
}

func TestCreateFromShippedOrder(t *testing.T) {
	s := newInvoiceService(t)
	ctx := context.Background()

	inv, created, err := s.CreateFromShippedOrder(ctx, shippedEvent())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "2024-01-01", dateOf(inv.InvoiceDate))
	assert.Equal(t, "2024-01-31", dateOf(inv.DueDate))
	assert.Equal(t, "350", inv.Subtotal.String())
	assert.Equal(t, "35", inv.TaxAmount.String())
	assert.Equal(t, "385", inv.TotalAmount.String())
	assert.Equal(t, "USD", inv.Currency)
	require.NotNil(t, inv.OrderID)
	assert.Equal(t, uint(42), *inv.OrderID)
	assert.Equal(t, "10", inv.Items[0].TaxPercent.String())

	again, created, err := s.CreateFromShippedOrder(ctx, shippedEvent())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, inv.ID, again.ID)

	list, total, err := s.ListInvoices(ctx, 1, InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}

func TestManualInvoiceForInvoicedOrderConflicts(t *testing.T) {
	s := newInvoiceService(t)
	ctx := context.Background()
	_, _, err := s.CreateFromShippedOrder(ctx, shippedEvent())
	require.NoError(t, err)

	in := simpleInvoice("10", 1)
	orderID := uint(42)
	in.OrderID = &orderID
	_, err = s.CreateInvoice(ctx, 1, nil, in)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	in.InvoiceType = model.InvoiceTypeCreditNote
	_, err = s.CreateInvoice(ctx, 1, nil, in)
	assert.NoError(t, err)
}

func TestCreateFromShippedOrderRejectsIncompleteEvent(t *testing.T) {
	s := newInvoiceService(t)
	evt := shippedEvent()
	evt.TenantID = 0
	_, _, err := s.CreateFromShippedOrder(context.Background(), evt)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestInvoiceNumberRetry(t *testing.T) {
	s := newInvoiceService(t)
	draws := []int{3, 3, 4}
	s.random = func(int) int {
		n := draws[0]
		draws = draws[1:]
		return n
	}

	first, err := s.CreateInvoice(context.Background(), 1, nil, simpleInvoice("10", 1))
	require.NoError(t, err)
	second, err := s.CreateInvoice(context.Background(), 1, nil, simpleInvoice("10", 1))
	require.NoError(t, err)
	assert.NotEqual(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Contains(t, second.InvoiceNumber, "-004")
}

func TestListInvoicesFilters(t *testing.T) {
	s := newInvoiceService(t)
	ctx := context.Background()
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	in := simpleInvoice("10", 1)
	in.InvoiceDate = &jan
	_, err := s.CreateInvoice(ctx, 1, nil, in)
	require.NoError(t, err)
	sent, err := s.CreateInvoice(ctx, 1, nil, simpleInvoice("10", 1))
	require.NoError(t, err)
	_, err = s.SendInvoice(ctx, 1, sent.ID)
	require.NoError(t, err)
	_, err = s.CreateInvoice(ctx, 2, nil, simpleInvoice("10", 1))
	require.NoError(t, err)

	_, total, err := s.ListInvoices(ctx, 1, InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	list, _, err := s.ListInvoices(ctx, 1, InvoiceFilter{Status: model.InvoiceStatusSent})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sent.ID, list[0].ID)

	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	_, total, err = s.ListInvoices(ctx, 1, InvoiceFilter{From: &feb})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
