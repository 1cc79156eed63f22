package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateQuotationInput is the request to quote a set of items
type CreateQuotationInput struct {
	CustomerID     uint
	WarehouseID    uint
	Items          []OrderItemInput
	Currency       string
	TaxAmount      *decimal.Decimal
	ShippingAmount *decimal.Decimal
	DiscountAmount *decimal.Decimal
	ValidUntil     *time.Time
	Notes          string
}

// QuotationService prices offers and converts them into orders
type QuotationService struct {
	db     *gorm.DB
	orders *OrderService
}

// NewQuotationService creates a quotation service on top of orders
func NewQuotationService(db *gorm.DB, orders *OrderService) *QuotationService {
	return &QuotationService{db: db, orders: orders}
}

// CreateQuotation prices the items the same way an order would be priced
func (s *QuotationService) CreateQuotation(ctx context.Context, tenantID, userID uint, in CreateQuotationInput) (*model.Quotation, error) {
	if in.CustomerID == 0 || in.WarehouseID == 0 {
		return nil, apperror.Validation("customer_id and warehouse_id are required")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	if err := validateAmounts(in.TaxAmount, in.ShippingAmount, in.DiscountAmount); err != nil {
		return nil, err
	}
	customer, err := s.orders.customers.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	lines, subtotal, err := s.orders.priceItems(ctx, in.CustomerID, in.Items)
	if err != nil {
		return nil, err
	}
	tax, shipping, discount := zeroIfNil(in.TaxAmount), zeroIfNil(in.ShippingAmount), zeroIfNil(in.DiscountAmount)
	total, err := orderTotal(subtotal, tax, shipping, discount)
	if err != nil {
		return nil, err
	}

	q := &model.Quotation{
		TenantID:       tenantID,
		CustomerID:     in.CustomerID,
		WarehouseID:    in.WarehouseID,
		Status:         model.QuotationStatusOpen,
		Currency:       currency(in.Currency, customer.Currency),
		ValidUntil:     in.ValidUntil,
		Subtotal:       subtotal,
		TaxAmount:      tax,
		ShippingAmount: shipping,
		DiscountAmount: discount,
		TotalAmount:    total,
		Notes:          in.Notes,
		CreatedBy:      userID,
	}
	for _, line := range lines {
		q.Items = append(q.Items, model.QuotationItem{
			ProductID:      line.ProductID,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPrice:      line.price.Price.Round(2),
			DiscountAmount: line.price.DiscountAmount.Round(2),
			FinalPrice:     line.price.FinalPrice.Round(2),
			LineTotal:      line.lineTotal,
			PriceType:      line.price.PriceType,
		})
	}

	for attempt := 1; ; attempt++ {
		q.ID = 0
		q.QuotationNumber = s.orders.number("QT")
		for i := range q.Items {
			q.Items[i].ID = 0
		}
		err = database.RunInTx(ctx, s.db, func(ctx context.Context) error {
			db := database.FromContext(ctx, s.db)
			if err := db.Omit(clause.Associations).Create(q).Error; err != nil {
				return err
			}
			for i := range q.Items {
				q.Items[i].QuotationID = q.ID
			}
			return db.Create(&q.Items).Error
		})
		if err == nil {
			break
		}
		if !database.IsDuplicate(err) {
			return nil, apperror.Internal(err, "failed to save quotation")
		}
		if attempt == maxNumberAttempts {
			return nil, apperror.Conflict("quotation number %s already exists", q.QuotationNumber)
		}
	}

	logger.FromContext(ctx).Info("Quotation created",
		zap.Uint("quotation_id", q.ID),
		zap.String("quotation_number", q.QuotationNumber))
	return q, nil
}

// GetQuotation returns a quotation of the tenant with its items
func (s *QuotationService) GetQuotation(ctx context.Context, tenantID, id uint) (*model.Quotation, error) {
	var q model.Quotation
	err := database.FromContext(ctx, s.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&q).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("quotation %d not found", id)
		}
		return nil, apperror.Internal(err, "failed to load quotation")
	}
	return &q, nil
}

// ListQuotations returns the tenant's quotations, newest first
func (s *QuotationService) ListQuotations(ctx context.Context, tenantID uint, status model.QuotationStatus) ([]model.Quotation, error) {
	q := database.FromContext(ctx, s.db).Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	list := []model.Quotation{}
	if err := q.Preload("Items").Order("id desc").Find(&list).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list quotations")
	}
	return list, nil
}

// ConvertToOrder runs the order creation flow for an open quotation. The
// quotation is claimed first so that only one conversion can succeed; a
// failed order creation releases it again.
func (s *QuotationService) ConvertToOrder(ctx context.Context, tenantID, userID, id uint) (*model.SalesOrder, error) {
	q, err := s.GetQuotation(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if q.ValidUntil != nil && s.orders.now().After(*q.ValidUntil) {
		return nil, apperror.Validation("quotation %s expired on %s", q.QuotationNumber, q.ValidUntil.Format("2006-01-02"))
	}

	db := database.FromContext(ctx, s.db)
	res := db.Model(&model.Quotation{}).
		Where("id = ? AND status = ?", id, model.QuotationStatusOpen).
		Update("status", model.QuotationStatusConverted)
	if res.Error != nil {
		return nil, apperror.Internal(res.Error, "failed to claim quotation")
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Conflict("quotation %s is %s and cannot be converted", q.QuotationNumber, q.Status)
	}

	in := CreateOrderInput{
		CustomerID:     q.CustomerID,
		WarehouseID:    q.WarehouseID,
		Currency:       q.Currency,
		TaxAmount:      &q.TaxAmount,
		ShippingAmount: &q.ShippingAmount,
		DiscountAmount: &q.DiscountAmount,
		Notes:          q.Notes,
		quotationID:    &q.ID,
	}
	for _, item := range q.Items {
		in.Items = append(in.Items, OrderItemInput{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Description: item.Description,
		})
	}

	order, err := s.orders.CreateOrder(ctx, tenantID, userID, in)
	if err != nil {
		if rerr := db.Model(&model.Quotation{}).Where("id = ?", id).Update("status", model.QuotationStatusOpen).Error; rerr != nil {
			logger.FromContext(ctx).Error("Failed to release quotation", zap.Uint("quotation_id", id), zap.Error(rerr))
		}
		return nil, err
	}
	if err := db.Model(&model.Quotation{}).Where("id = ?", id).Update("order_id", order.ID).Error; err != nil {
		return nil, apperror.Internal(err, "failed to link quotation %s to order %s", q.QuotationNumber, order.OrderNumber)
	}

	logger.FromContext(ctx).Info("Quotation converted",
		zap.String("quotation_number", q.QuotationNumber),
		zap.String("order_number", order.OrderNumber))
	return order, nil
}
