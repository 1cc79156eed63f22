package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/messaging"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/model"
	"github.com/suteetoe/erpsuite/services/sales-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultCurrency   = "THB"
	maxNumberAttempts = 3
)

// OrderItemInput is one requested line
type OrderItemInput struct {
	ProductID   uint
	Quantity    int
	Description string
	Notes       string
}

// CreateOrderInput is the request to create an order. Missing amounts count as zero.
type CreateOrderInput struct {
	CustomerID           uint
	WarehouseID          uint
	Items                []OrderItemInput
	Currency             string
	TaxAmount            *decimal.Decimal
	ShippingAmount       *decimal.Decimal
	DiscountAmount       *decimal.Decimal
	ExpectedDeliveryDate *time.Time
	BillingAddress       string
	ShippingAddress      string
	Notes                string

	quotationID *uint
}

// OrderFilter narrows ListOrders
type OrderFilter struct {
	Status     model.OrderStatus
	CustomerID uint
	Limit      int
	Offset     int
}

// OrderService creates sales orders and moves them through their lifecycle
type OrderService struct {
	db        *gorm.DB
	customers CustomerValidator
	prices    PriceResolver
	publisher messaging.Publisher
	now       func() time.Time
	random    func(n int) int
}

// NewOrderService creates an order service. publisher may be nil, in which
// case events are dropped with a warning.
func NewOrderService(db *gorm.DB, customers CustomerValidator, prices PriceResolver, publisher messaging.Publisher) *OrderService {
	return &OrderService{
		db:        db,
		customers: customers,
		prices:    prices,
		publisher: publisher,
		now:       time.Now,
		random:    rand.Intn,
	}
}

func zeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return d.Round(2)
}

func validateItems(items []OrderItemInput) error {
	if len(items) == 0 {
		return apperror.Validation("at least one item is required")
	}
	for i, item := range items {
		if item.ProductID == 0 {
			return apperror.Validation("item %d: product_id is required", i+1)
		}
		if item.Quantity <= 0 {
			return apperror.Validation("item %d: quantity must be positive", i+1)
		}
	}
	return nil
}

func validateAmounts(amounts ...*decimal.Decimal) error {
	for _, a := range amounts {
		if a != nil && a.IsNegative() {
			return apperror.Validation("tax, shipping and discount amounts must not be negative")
		}
	}
	return nil
}

// pricedLine is an item after price resolution
type pricedLine struct {
	OrderItemInput
	price     *Price
	lineTotal decimal.Decimal
}

// priceItems resolves every item and returns the lines with their subtotal.
// An unpriced item fails the whole request.
func (s *OrderService) priceItems(ctx context.Context, customerID uint, items []OrderItemInput) ([]pricedLine, decimal.Decimal, error) {
	lines := make([]pricedLine, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		price, err := s.prices.ResolvePrice(ctx, item.ProductID, customerID, item.Quantity)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if price.PriceType == PriceTypeUnpriced || !price.FinalPrice.IsPositive() {
			return nil, decimal.Zero, apperror.Validation("product %d has no applicable price", item.ProductID)
		}
		lineTotal := price.FinalPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, pricedLine{OrderItemInput: item, price: price, lineTotal: lineTotal})
	}
	return lines, subtotal, nil
}

// orderTotal is subtotal + tax + shipping - discount
func orderTotal(subtotal, tax, shipping, discount decimal.Decimal) (decimal.Decimal, error) {
	total := subtotal.Add(tax).Add(shipping).Sub(discount).Round(2)
	if total.IsNegative() {
		return decimal.Zero, apperror.Validation("discount exceeds the order amount")
	}
	return total, nil
}

// number builds "<prefix>-<epoch millis>-<3 digits>"
func (s *OrderService) number(prefix string) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, s.now().UnixMilli(), s.random(1000))
}

// CreateOrder validates the customer, prices every item, stores the order
// with its items in one transaction and announces it on order.created.
func (s *OrderService) CreateOrder(ctx context.Context, tenantID, userID uint, in CreateOrderInput) (*model.SalesOrder, error) {
	log := logger.FromContext(ctx)

	if in.CustomerID == 0 || in.WarehouseID == 0 {
		return nil, apperror.Validation("customer_id and warehouse_id are required")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	if err := validateAmounts(in.TaxAmount, in.ShippingAmount, in.DiscountAmount); err != nil {
		return nil, err
	}

	customer, err := s.customers.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive {
		return nil, apperror.Validation("customer %d is inactive", in.CustomerID)
	}

	lines, subtotal, err := s.priceItems(ctx, in.CustomerID, in.Items)
	if err != nil {
		return nil, err
	}
	tax, shipping, discount := zeroIfNil(in.TaxAmount), zeroIfNil(in.ShippingAmount), zeroIfNil(in.DiscountAmount)
	total, err := orderTotal(subtotal, tax, shipping, discount)
	if err != nil {
		return nil, err
	}

	order := &model.SalesOrder{
		TenantID:             tenantID,
		CustomerID:           customer.ID,
		CustomerName:         customer.Name,
		CustomerEmail:        customer.Email,
		CustomerPhone:        customer.Phone,
		WarehouseID:          in.WarehouseID,
		QuotationID:          in.quotationID,
		Status:               model.OrderStatusPending,
		Currency:             currency(in.Currency, customer.Currency),
		OrderDate:            s.now(),
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		BillingAddress:       firstNonEmpty(in.BillingAddress, customer.BillingAddress),
		ShippingAddress:      firstNonEmpty(in.ShippingAddress, customer.ShippingAddress),
		Subtotal:             subtotal,
		TaxAmount:            tax,
		ShippingAmount:       shipping,
		DiscountAmount:       discount,
		TotalAmount:          total,
		Notes:                in.Notes,
		CreatedBy:            userID,
	}
	for _, line := range lines {
		order.Items = append(order.Items, model.SalesOrderItem{
			ProductID:      line.ProductID,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPrice:      line.price.Price.Round(2),
			DiscountAmount: line.price.DiscountAmount.Round(2),
			FinalPrice:     line.price.FinalPrice.Round(2),
			LineTotal:      line.lineTotal,
			PriceType:      line.price.PriceType,
			AppliedPriceID: line.price.AppliedPriceID,
			Notes:          line.Notes,
		})
	}

	if err := s.insert(ctx, order); err != nil {
		return nil, err
	}
	log.Info("Sales order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Uint("tenant_id", tenantID),
		zap.String("total_amount", order.TotalAmount.String()))

	s.publishCreated(ctx, order)
	return order, nil
}

// insert stores order and items in one transaction, drawing a new order
// number when the previous one collides
func (s *OrderService) insert(ctx context.Context, order *model.SalesOrder) error {
	items := order.Items
	for attempt := 1; ; attempt++ {
		order.ID = 0
		order.OrderNumber = s.number("SO")
		for i := range items {
			items[i].ID = 0
			items[i].OrderID = 0
		}

		err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
			db := database.FromContext(ctx, s.db)
			if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].OrderID = order.ID
			}
			return db.Create(&items).Error
		})
		if err == nil {
			order.Items = items
			return nil
		}
		if !database.IsDuplicate(err) {
			return apperror.Internal(err, "failed to save order")
		}
		if attempt == maxNumberAttempts {
			return apperror.Conflict("order number %s already exists", order.OrderNumber)
		}
		logger.FromContext(ctx).Warn("Order number collision, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt))
	}
}

func (s *OrderService) publish(ctx context.Context, routingKey string, payload interface{}) {
	log := logger.FromContext(ctx)
	if s.publisher == nil {
		log.Warn("No publisher configured, event dropped", zap.String("routing_key", routingKey))
		prometheus.RecordEventPublish(routingKey, messaging.ErrNotConnected)
		return
	}
	err := s.publisher.Publish(ctx, routingKey, payload)
	prometheus.RecordEventPublish(routingKey, err)
	if err != nil {
		// the order stays committed; there is no outbox to retry from
		log.Error("Failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func (s *OrderService) publishCreated(ctx context.Context, order *model.SalesOrder) {
	evt := messaging.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TenantID:    order.TenantID,
		CustomerID:  order.CustomerID,
		WarehouseID: order.WarehouseID,
		TotalAmount: order.TotalAmount,
		Timestamp:   s.now().UTC(),
	}
	for _, item := range order.Items {
		evt.Items = append(evt.Items, messaging.OrderCreatedItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	s.publish(ctx, messaging.TopicOrderCreated, evt)
}

// GetOrder returns an order of the tenant with its items
func (s *OrderService) GetOrder(ctx context.Context, tenantID, id uint) (*model.SalesOrder, error) {
	var order model.SalesOrder
	err := database.FromContext(ctx, s.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&order).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("order %d not found", id)
		}
		return nil, apperror.Internal(err, "failed to load order")
	}
	return &order, nil
}

// ListOrders returns the tenant's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, tenantID uint, filter OrderFilter) ([]model.SalesOrder, int64, error) {
	q := database.FromContext(ctx, s.db).Model(&model.SalesOrder{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != 0 {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to count orders")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	orders := []model.SalesOrder{}
	if err := q.Preload("Items").Order("id desc").Limit(limit).Offset(filter.Offset).Find(&orders).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to list orders")
	}
	return orders, total, nil
}

// transition moves an order from one of from to to. The status check and the
// update are one statement, so concurrent transitions cannot both win.
func (s *OrderService) transition(ctx context.Context, tenantID, id uint, to model.OrderStatus, updates map[string]interface{}, from ...model.OrderStatus) (*model.SalesOrder, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	res := database.FromContext(ctx, s.db).Model(&model.SalesOrder{}).
		Where("id = ? AND tenant_id = ? AND status IN ?", id, tenantID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, apperror.Internal(res.Error, "failed to update order")
	}

	order, err := s.GetOrder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Conflict("order %s is %s and cannot become %s", order.OrderNumber, order.Status, to)
	}
	logger.FromContext(ctx).Info("Order status changed",
		zap.Uint("order_id", id),
		zap.String("status", string(to)))
	return order, nil
}

// ApproveOrder confirms a pending order
func (s *OrderService) ApproveOrder(ctx context.Context, tenantID, id uint) (*model.SalesOrder, error) {
	return s.transition(ctx, tenantID, id, model.OrderStatusConfirmed, nil, model.OrderStatusPending)
}

// CancelOrder cancels an order that has not shipped yet
func (s *OrderService) CancelOrder(ctx context.Context, tenantID, id uint) (*model.SalesOrder, error) {
	return s.transition(ctx, tenantID, id, model.OrderStatusCancelled, nil, model.OrderStatusPending, model.OrderStatusConfirmed)
}

// DeliverOrder records the delivery of a shipped order
func (s *OrderService) DeliverOrder(ctx context.Context, tenantID, id uint) (*model.SalesOrder, error) {
	return s.transition(ctx, tenantID, id, model.OrderStatusDelivered, nil, model.OrderStatusShipped)
}

// ShipOrder marks a confirmed order as shipped and announces it on
// order.shipped, which triggers invoicing
func (s *OrderService) ShipOrder(ctx context.Context, tenantID, id uint) (*model.SalesOrder, error) {
	shipped := s.now()
	order, err := s.transition(ctx, tenantID, id, model.OrderStatusShipped,
		map[string]interface{}{"shipped_date": shipped}, model.OrderStatusConfirmed)
	if err != nil {
		return nil, err
	}

	evt := messaging.OrderShippedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TenantID:    order.TenantID,
		CustomerID:  order.CustomerID,
		Currency:    order.Currency,
		ShippedDate: shipped.UTC(),
		Timestamp:   s.now().UTC(),
	}
	for _, item := range order.Items {
		description := item.Description
		if description == "" {
			description = fmt.Sprintf("Product %d", item.ProductID)
		}
		evt.Items = append(evt.Items, messaging.OrderShippedItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			UnitPrice:   item.FinalPrice,
			Description: description,
		})
	}
	s.publish(ctx, messaging.TopicOrderShipped, evt)
	return order, nil
}

func currency(requested, fallback string) string {
	if c := strings.ToUpper(strings.TrimSpace(requested)); c != "" {
		return c
	}
	if fallback != "" {
		return fallback
	}
	return defaultCurrency
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
