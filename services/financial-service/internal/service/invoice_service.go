package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/messaging"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultCurrency   = "THB"
	maxNumberAttempts = 3
)

// InvoiceItemInput is one requested line. A nil TaxPercent takes the default rate.
type InvoiceItemInput struct {
	ProductID       *uint
	Description     string
	Quantity        int
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      *decimal.Decimal
}

// CreateInvoiceInput is the request to create an invoice by hand
type CreateInvoiceInput struct {
	InvoiceType    model.InvoiceType
	OrderID        *uint
	CustomerID     uint
	InvoiceDate    *time.Time
	DueDate        *time.Time
	Currency       string
	Items          []InvoiceItemInput
	Subtotal       *decimal.Decimal
	TaxAmount      *decimal.Decimal
	DiscountAmount *decimal.Decimal
	Notes          string
}

// PaymentInput describes money received
type PaymentInput struct {
	Amount      decimal.Decimal
	Method      string
	Reference   string
	PaymentDate *time.Time
}

// InvoiceFilter narrows ListInvoices
type InvoiceFilter struct {
	Status      model.InvoiceStatus
	InvoiceType model.InvoiceType
	CustomerID  uint
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// InvoiceService manages invoices and their payments
type InvoiceService struct {
	db          *gorm.DB
	taxPercent  decimal.Decimal
	paymentTerm int
	now         func() time.Time
	random      func(n int) int
}

// NewInvoiceService creates an invoice service with the tax rate and payment
// term of cfg
func NewInvoiceService(db *gorm.DB, cfg *config.FinanceConfig) *InvoiceService {
	return &InvoiceService{
		db:          db,
		taxPercent:  decimal.NewFromFloat(cfg.DefaultTaxPercent),
		paymentTerm: cfg.PaymentTermDays,
		now:         time.Now,
		random:      rand.Intn,
	}
}

func (s *InvoiceService) number() string {
	return fmt.Sprintf("INV-%d-%03d", s.now().UnixMilli(), s.random(1000))
}

func (s *InvoiceService) buildItems(in []InvoiceItemInput) ([]model.InvoiceItem, error) {
	if len(in) == 0 {
		return nil, apperror.Validation("at least one item is required")
	}
	items := make([]model.InvoiceItem, 0, len(in))
	for i, item := range in {
		if item.Quantity <= 0 {
			return nil, apperror.Validation("item %d: quantity must be positive", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return nil, apperror.Validation("item %d: unit price must not be negative", i+1)
		}
		if item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(hundred) {
			return nil, apperror.Validation("item %d: discount percent must be between 0 and 100", i+1)
		}
		tax := s.taxPercent
		if item.TaxPercent != nil {
			tax = *item.TaxPercent
		}
		if tax.IsNegative() {
			return nil, apperror.Validation("item %d: tax percent must not be negative", i+1)
		}
		description := strings.TrimSpace(item.Description)
		if description == "" {
			if item.ProductID == nil {
				return nil, apperror.Validation("item %d: description is required", i+1)
			}
			description = fmt.Sprintf("Product %d", *item.ProductID)
		}
		items = append(items, model.InvoiceItem{
			ProductID:       item.ProductID,
			Description:     description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice.Round(2),
			DiscountPercent: item.DiscountPercent,
			TaxPercent:      tax,
		})
	}
	return items, nil
}

// CreateInvoice stores a DRAFT invoice. The due date defaults to the payment
// term after the invoice date.
func (s *InvoiceService) CreateInvoice(ctx context.Context, tenantID uint, createdBy *uint, in CreateInvoiceInput) (*model.Invoice, error) {
	if in.InvoiceType == "" {
		in.InvoiceType = model.InvoiceTypeSales
	}
	if !in.InvoiceType.Valid() {
		return nil, apperror.Validation("invalid invoice type %q", in.InvoiceType)
	}
	if in.CustomerID == 0 {
		return nil, apperror.Validation("customer_id is required")
	}
	for _, o := range []*decimal.Decimal{in.Subtotal, in.TaxAmount, in.DiscountAmount} {
		if o != nil && o.IsNegative() {
			return nil, apperror.Validation("subtotal, tax and discount amounts must not be negative")
		}
	}
	items, err := s.buildItems(in.Items)
	if err != nil {
		return nil, err
	}

	invoiceDate := s.now()
	if in.InvoiceDate != nil {
		invoiceDate = *in.InvoiceDate
	}
	dueDate := invoiceDate.AddDate(0, 0, s.paymentTerm)
	if in.DueDate != nil {
		dueDate = *in.DueDate
	}
	if dueDate.Before(invoiceDate) {
		return nil, apperror.Validation("due date must not be before the invoice date")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	inv := &model.Invoice{
		TenantID:    tenantID,
		InvoiceType: in.InvoiceType,
		OrderID:     in.OrderID,
		CustomerID:  in.CustomerID,
		Status:      model.InvoiceStatusDraft,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		Currency:    currency,
		PaidAmount:  decimal.Zero,
		Notes:       in.Notes,
		CreatedBy:   createdBy,
		Items:       items,
	}
	totals(inv, in.Subtotal, in.TaxAmount, in.DiscountAmount)

	if err := s.insert(ctx, inv); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Invoice created",
		zap.Uint("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Uint("tenant_id", tenantID),
		zap.String("total_amount", inv.TotalAmount.String()))
	return inv, nil
}

// insert stores the invoice and its items in one transaction, drawing a new
// number when the previous one collides
func (s *InvoiceService) insert(ctx context.Context, inv *model.Invoice) error {
	items := inv.Items
	for attempt := 1; ; attempt++ {
		inv.ID = 0
		inv.InvoiceNumber = s.number()
		for i := range items {
			items[i].ID = 0
		}

		err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
			db := database.FromContext(ctx, s.db)
			if inv.OrderID != nil {
				var existing int64
				err := db.Model(&model.Invoice{}).
					Where("order_id = ? AND invoice_type = ?", *inv.OrderID, inv.InvoiceType).
					Count(&existing).Error
				if err != nil {
					return err
				}
				if existing > 0 {
					return apperror.Conflict("%s invoice for order %d already exists", inv.InvoiceType, *inv.OrderID)
				}
			}
			if err := db.Omit(clause.Associations).Create(inv).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].InvoiceID = inv.ID
			}
			return db.Create(&items).Error
		})
		if err == nil {
			inv.Items = items
			return nil
		}
		if apperror.Is(err, apperror.KindConflict) {
			return err
		}
		if !database.IsDuplicate(err) {
			return apperror.Internal(err, "failed to save invoice")
		}
		if attempt == maxNumberAttempts {
			return apperror.Conflict("invoice number %s already exists", inv.InvoiceNumber)
		}
		logger.FromContext(ctx).Warn("Invoice number collision, retrying",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Int("attempt", attempt))
	}
}

// CreateFromShippedOrder creates the SALES invoice of a shipped order. It is
// keyed on the order id: a redelivered event returns the existing invoice
// and created is false.
func (s *InvoiceService) CreateFromShippedOrder(ctx context.Context, evt messaging.OrderShippedEvent) (inv *model.Invoice, created bool, err error) {
	if evt.OrderID == 0 || evt.TenantID == 0 || evt.CustomerID == 0 {
		return nil, false, apperror.Validation("order.shipped event needs orderId, tenantId and customerId")
	}
	if existing, err := s.findByOrder(ctx, evt.OrderID); err != nil || existing != nil {
		return existing, false, err
	}

	shipped := evt.ShippedDate
	if shipped.IsZero() {
		shipped = s.now()
	}
	in := CreateInvoiceInput{
		InvoiceType: model.InvoiceTypeSales,
		OrderID:     &evt.OrderID,
		CustomerID:  evt.CustomerID,
		InvoiceDate: &shipped,
		Currency:    evt.Currency,
		Notes:       fmt.Sprintf("Generated from order %s", evt.OrderNumber),
	}
	for _, item := range evt.Items {
		productID := item.ProductID
		in.Items = append(in.Items, InvoiceItemInput{
			ProductID:   &productID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	inv, err = s.CreateInvoice(ctx, evt.TenantID, nil, in)
	if apperror.Is(err, apperror.KindConflict) {
		// lost a race against a concurrent delivery of the same event
		if existing, ferr := s.findByOrder(ctx, evt.OrderID); ferr == nil && existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return inv, true, nil
}

func (s *InvoiceService) findByOrder(ctx context.Context, orderID uint) (*model.Invoice, error) {
	var inv model.Invoice
	res := database.FromContext(ctx, s.db).Preload("Items").
		Where("order_id = ? AND invoice_type = ?", orderID, model.InvoiceTypeSales).
		Limit(1).Find(&inv)
	if res.Error != nil {
		return nil, apperror.Internal(res.Error, "failed to look up invoice of order %d", orderID)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &inv, nil
}

// GetInvoice returns an invoice of the tenant with items and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID, id uint) (*model.Invoice, error) {
	var inv model.Invoice
	err := database.FromContext(ctx, s.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&inv).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("invoice %d not found", id)
		}
		return nil, apperror.Internal(err, "failed to load invoice")
	}
	return &inv, nil
}

// ListInvoices returns the tenant's invoices, newest first
func (s *InvoiceService) ListInvoices(ctx context.Context, tenantID uint, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	q := database.FromContext(ctx, s.db).Model(&model.Invoice{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.InvoiceType != "" {
		q = q.Where("invoice_type = ?", filter.InvoiceType)
	}
	if filter.CustomerID != 0 {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.From != nil {
		q = q.Where("invoice_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("invoice_date <= ?", *filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to count invoices")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	invoices := []model.Invoice{}
	if err := q.Preload("Items").Order("id desc").Limit(limit).Offset(filter.Offset).Find(&invoices).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to list invoices")
	}
	return invoices, total, nil
}

// transition moves an invoice from one of from to to in a single
// conditional update
func (s *InvoiceService) transition(ctx context.Context, tenantID, id uint, to model.InvoiceStatus, updates map[string]interface{}, from ...model.InvoiceStatus) (*model.Invoice, error) {
	updates["status"] = to
	res := database.FromContext(ctx, s.db).Model(&model.Invoice{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", id, tenantID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, apperror.Internal(res.Error, "failed to update invoice")
	}

	inv, err := s.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Conflict("invoice %s is %s and cannot become %s", inv.InvoiceNumber, inv.Status, to)
	}
	logger.FromContext(ctx).Info("Invoice status changed",
		zap.Uint("invoice_id", id),
		zap.String("status", string(to)))
	return inv, nil
}

// SendInvoice issues a draft to the customer
func (s *InvoiceService) SendInvoice(ctx context.Context, tenantID, id uint) (*model.Invoice, error) {
	return s.transition(ctx, tenantID, id, model.InvoiceStatusSent,
		map[string]interface{}{"sent_at": s.now()}, model.InvoiceStatusDraft)
}

// CancelInvoice voids a draft or sent invoice that has no payments
func (s *InvoiceService) CancelInvoice(ctx context.Context, tenantID, id uint) (*model.Invoice, error) {
	inv, err := s.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if inv.PaidAmount.IsPositive() {
		return nil, apperror.Conflict("invoice %s has payments and cannot be cancelled", inv.InvoiceNumber)
	}
	return s.transition(ctx, tenantID, id, model.InvoiceStatusCancelled,
		map[string]interface{}{"cancelled_at": s.now()}, model.InvoiceStatusDraft, model.InvoiceStatusSent)
}

// RecordPayment applies amount to a SENT or OVERDUE invoice. A payment larger
// than the balance is rejected; the invoice becomes PAID when the balance
// reaches zero. The payment row and the new balance are written together.
func (s *InvoiceService) RecordPayment(ctx context.Context, tenantID, id uint, createdBy *uint, in PaymentInput) (*model.Invoice, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, apperror.Validation("payment amount must be positive")
	}
	paymentDate := s.now()
	if in.PaymentDate != nil {
		paymentDate = *in.PaymentDate
	}

	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)

		var inv model.Invoice
		if err := db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&inv).Error; err != nil {
			if database.IsNotFound(err) {
				return apperror.NotFound("invoice %d not found", id)
			}
			return apperror.Internal(err, "failed to load invoice")
		}
		if inv.Status != model.InvoiceStatusSent && inv.Status != model.InvoiceStatusOverdue {
			return apperror.Conflict("invoice %s is %s and cannot take payments", inv.InvoiceNumber, inv.Status)
		}
		if amount.GreaterThan(inv.BalanceAmount) {
			return apperror.Validation("payment %s exceeds the outstanding balance %s", amount, inv.BalanceAmount)
		}

		paid := inv.PaidAmount.Add(amount)
		balance := inv.TotalAmount.Sub(paid)
		updates := map[string]interface{}{
			"paid_amount":    paid,
			"balance_amount": balance,
		}
		if balance.IsZero() {
			updates["status"] = model.InvoiceStatusPaid
			updates["paid_at"] = paymentDate
		}
		// the paid_amount guard rejects a concurrent payment applied in between
		res := db.Model(&model.Invoice{}).
			Where("id = ? AND paid_amount = ?", id, inv.PaidAmount).
			Updates(updates)
		if res.Error != nil {
			return apperror.Internal(res.Error, "failed to update invoice balance")
		}
		if res.RowsAffected == 0 {
			return apperror.Conflict("invoice %s was updated concurrently, retry the payment", inv.InvoiceNumber)
		}

		payment := &model.Payment{
			InvoiceID:   id,
			TenantID:    tenantID,
			Amount:      amount,
			PaymentDate: paymentDate,
			Method:      in.Method,
			Reference:   in.Reference,
			CreatedBy:   createdBy,
		}
		if err := db.Create(payment).Error; err != nil {
			return apperror.Internal(err, "failed to save payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv, err := s.GetInvoice(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Payment recorded",
		zap.Uint("invoice_id", id),
		zap.String("amount", amount.String()),
		zap.String("balance_amount", inv.BalanceAmount.String()),
		zap.String("status", string(inv.Status)))
	return inv, nil
}

// ListPayments returns the payments of an invoice in the order received
func (s *InvoiceService) ListPayments(ctx context.Context, tenantID, id uint) ([]model.Payment, error) {
	if _, err := s.GetInvoice(ctx, tenantID, id); err != nil {
		return nil, err
	}
	payments := []model.Payment{}
	if err := database.FromContext(ctx, s.db).Where("invoice_id = ?", id).Order("id").Find(&payments).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list payments")
	}
	return payments, nil
}

// MarkOverdue moves every SENT invoice past its due date with an open
// balance to OVERDUE, across all tenants
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := database.FromContext(ctx, s.db).Model(&model.Invoice{}).
		Where("status = ? AND due_date < ? AND balance_amount > ?", model.InvoiceStatusSent, now, 0).
		Update("status", model.InvoiceStatusOverdue)
	if res.Error != nil {
		return 0, apperror.Internal(res.Error, "failed to mark overdue invoices")
	}
	return res.RowsAffected, nil
}
