package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/product-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PriceInput describes a price row
type PriceInput struct {
	PriceType       model.PriceType
	CustomerID      *uint
	MinQuantity     *int
	MaxQuantity     *int
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	ValidFrom       *time.Time
	ValidTo         *time.Time
	IsActive        *bool
}

// PriceService stores price rows and resolves unit prices
type PriceService struct {
	db       *gorm.DB
	products *ProductService
	now      func() time.Time
}

// NewPriceService creates a price service
func NewPriceService(db *gorm.DB, products *ProductService) *PriceService {
	return &PriceService{db: db, products: products, now: time.Now}
}

func (in PriceInput) validate() error {
	if !in.PriceType.Valid() {
		return apperror.Validation("invalid price type %q", in.PriceType)
	}
	if in.Price.IsNegative() {
		return apperror.Validation("price must not be negative")
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return apperror.Validation("discount_percent must be between 0 and 100")
	}
	if in.PriceType == model.PriceTypeCustomer && in.CustomerID == nil {
		return apperror.Validation("customer_id is required for CUSTOMER prices")
	}
	if in.PriceType != model.PriceTypeCustomer && in.CustomerID != nil {
		return apperror.Validation("customer_id is only allowed on CUSTOMER prices")
	}
	if in.PriceType == model.PriceTypeVolume && in.MinQuantity == nil && in.MaxQuantity == nil {
		return apperror.Validation("VOLUME prices need min_quantity or max_quantity")
	}
	if in.MinQuantity != nil && *in.MinQuantity < 0 {
		return apperror.Validation("min_quantity must not be negative")
	}
	if in.MinQuantity != nil && in.MaxQuantity != nil && *in.MaxQuantity < *in.MinQuantity {
		return apperror.Validation("max_quantity must not be below min_quantity")
	}
	if in.ValidFrom != nil && in.ValidTo != nil && in.ValidTo.Before(*in.ValidFrom) {
		return apperror.Validation("valid_to must not be before valid_from")
	}
	return nil
}

// CreatePrice adds a price row to a product of the tenant
func (s *PriceService) CreatePrice(ctx context.Context, tenantID, productID uint, in PriceInput) (*model.ProductPrice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.products.Get(ctx, tenantID, productID); err != nil {
		return nil, err
	}

	row := &model.ProductPrice{
		TenantID:        tenantID,
		ProductID:       productID,
		PriceType:       in.PriceType,
		CustomerID:      in.CustomerID,
		MinQuantity:     in.MinQuantity,
		MaxQuantity:     in.MaxQuantity,
		Price:           in.Price.Round(2),
		DiscountPercent: in.DiscountPercent.Round(2),
		ValidFrom:       in.ValidFrom,
		ValidTo:         in.ValidTo,
		IsActive:        true,
	}
	if in.IsActive != nil {
		row.IsActive = *in.IsActive
	}
	if err := database.FromContext(ctx, s.db).Create(row).Error; err != nil {
		return nil, writeError(err, "price already exists", "price")
	}

	logger.FromContext(ctx).Info("Price created",
		zap.Uint("price_id", row.ID),
		zap.Uint("product_id", productID),
		zap.String("price_type", string(row.PriceType)))
	return row, nil
}

// UpdatePrice replaces the row's terms
func (s *PriceService) UpdatePrice(ctx context.Context, tenantID, productID, priceID uint, in PriceInput) (*model.ProductPrice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row, err := s.getPrice(ctx, tenantID, productID, priceID)
	if err != nil {
		return nil, err
	}

	row.PriceType = in.PriceType
	row.CustomerID = in.CustomerID
	row.MinQuantity = in.MinQuantity
	row.MaxQuantity = in.MaxQuantity
	row.Price = in.Price.Round(2)
	row.DiscountPercent = in.DiscountPercent.Round(2)
	row.ValidFrom = in.ValidFrom
	row.ValidTo = in.ValidTo
	if in.IsActive != nil {
		row.IsActive = *in.IsActive
	}
	if err := database.FromContext(ctx, s.db).Save(row).Error; err != nil {
		return nil, writeError(err, "price already exists", "price")
	}
	return row, nil
}

// DeactivatePrice switches a row off without deleting it
func (s *PriceService) DeactivatePrice(ctx context.Context, tenantID, productID, priceID uint) error {
	row, err := s.getPrice(ctx, tenantID, productID, priceID)
	if err != nil {
		return err
	}
	if err := database.FromContext(ctx, s.db).Model(row).Update("is_active", false).Error; err != nil {
		return apperror.Internal(err, "failed to deactivate price")
	}
	return nil
}

// ListPrices returns every price row of a product
func (s *PriceService) ListPrices(ctx context.Context, tenantID, productID uint) ([]model.ProductPrice, error) {
	if _, err := s.products.Get(ctx, tenantID, productID); err != nil {
		return nil, err
	}
	return s.rows(ctx, tenantID, productID, false)
}

// ResolvePrice returns the unit price that applies to customerID buying quantity
func (s *PriceService) ResolvePrice(ctx context.Context, tenantID, productID uint, customerID *uint, quantity int) (Resolution, error) {
	if quantity <= 0 {
		return Resolution{}, apperror.Validation("quantity must be positive")
	}
	if _, err := s.products.Get(ctx, tenantID, productID); err != nil {
		return Resolution{}, err
	}
	rows, err := s.rows(ctx, tenantID, productID, true)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolve(rows, customerID, quantity, s.now())
	logger.FromContext(ctx).Debug("Price resolved",
		zap.Uint("product_id", productID),
		zap.Int("quantity", quantity),
		zap.String("price_type", string(res.PriceType)),
		zap.String("final_price", res.FinalPrice.String()))
	return res, nil
}

func (s *PriceService) rows(ctx context.Context, tenantID, productID uint, activeOnly bool) ([]model.ProductPrice, error) {
	q := database.FromContext(ctx, s.db).Where("tenant_id = ? AND product_id = ?", tenantID, productID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	rows := []model.ProductPrice{}
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load prices")
	}
	return rows, nil
}

func (s *PriceService) getPrice(ctx context.Context, tenantID, productID, priceID uint) (*model.ProductPrice, error) {
	var row model.ProductPrice
	err := database.FromContext(ctx, s.db).
		Where("id = ? AND tenant_id = ? AND product_id = ?", priceID, tenantID, productID).
		First(&row).Error
	if err != nil {
		return nil, lookupError(err, "price", priceID)
	}
	return &row, nil
}
