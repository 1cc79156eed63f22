package service

import (
	"context"
	"strings"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/product-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductInput carries product fields; nil pointers leave a field unchanged on update
type ProductInput struct {
	SKU         *string
	Name        *string
	Description *string
	Unit        *string
	Stock       *int
	CategoryID  *uint
	IsActive    *bool
}

// ProductFilter narrows List
type ProductFilter struct {
	CategoryID *uint
	Search     string
	ActiveOnly bool
}

// ProductService manages the tenant's catalog
type ProductService struct {
	db *gorm.DB
}

// NewProductService creates a product service
func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// Create adds a product to the tenant's catalog
func (s *ProductService) Create(ctx context.Context, tenantID uint, in ProductInput) (*model.Product, error) {
	if in.SKU == nil || strings.TrimSpace(*in.SKU) == "" || in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperror.Validation("sku and name are required")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return nil, apperror.Validation("stock must not be negative")
	}
	if err := s.checkCategory(ctx, tenantID, in.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		TenantID:   tenantID,
		SKU:        strings.TrimSpace(*in.SKU),
		Name:       strings.TrimSpace(*in.Name),
		CategoryID: in.CategoryID,
		IsActive:   true,
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Unit != nil {
		product.Unit = *in.Unit
	}
	if in.Stock != nil {
		product.Stock = *in.Stock
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}

	if err := database.FromContext(ctx, s.db).Create(product).Error; err != nil {
		return nil, writeError(err, "sku "+product.SKU+" already exists", "product")
	}
	logger.FromContext(ctx).Info("Product created",
		zap.Uint("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Uint("tenant_id", tenantID))
	return product, nil
}

// Get returns a product of the tenant
func (s *ProductService) Get(ctx context.Context, tenantID, id uint) (*model.Product, error) {
	var product model.Product
	err := database.FromContext(ctx, s.db).
		Preload("Category").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&product).Error
	if err != nil {
		return nil, lookupError(err, "product", id)
	}
	return &product, nil
}

// List returns the tenant's products
func (s *ProductService) List(ctx context.Context, tenantID uint, filter ProductFilter) ([]model.Product, error) {
	q := database.FromContext(ctx, s.db).Where("tenant_id = ?", tenantID)
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

	products := []model.Product{}
	if err := q.Order("id").Find(&products).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list products")
	}
	return products, nil
}

// Update applies the non-nil fields of in
func (s *ProductService) Update(ctx context.Context, tenantID, id uint, in ProductInput) (*model.Product, error) {
	product, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.SKU != nil {
		if strings.TrimSpace(*in.SKU) == "" {
			return nil, apperror.Validation("sku must not be empty")
		}
		updates["sku"] = strings.TrimSpace(*in.SKU)
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperror.Validation("name must not be empty")
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Unit != nil {
		updates["unit"] = *in.Unit
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, apperror.Validation("stock must not be negative")
		}
		updates["stock"] = *in.Stock
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, tenantID, in.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *in.CategoryID
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := database.FromContext(ctx, s.db).Model(product).Updates(updates).Error; err != nil {
		return nil, writeError(err, "sku already exists", "product")
	}
	return s.Get(ctx, tenantID, id)
}

// Delete soft-deletes a product and its price rows
func (s *ProductService) Delete(ctx context.Context, tenantID, id uint) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)
		res := db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Product{})
		if res.Error != nil {
			return apperror.Internal(res.Error, "failed to delete product")
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("product %d not found", id)
		}
		if err := db.Where("product_id = ?", id).Delete(&model.ProductPrice{}).Error; err != nil {
			return apperror.Internal(err, "failed to delete prices")
		}
		return nil
	})
}

func (s *ProductService) checkCategory(ctx context.Context, tenantID uint, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	var count int64
	err := database.FromContext(ctx, s.db).Model(&model.ProductCategory{}).
		Where("id = ? AND tenant_id = ?", *categoryID, tenantID).
		Count(&count).Error
	if err != nil {
		return apperror.Internal(err, "failed to load category")
	}
	if count == 0 {
		return apperror.Validation("category %d does not exist", *categoryID)
	}
	return nil
}

// CreateCategory adds a category to the tenant
func (s *ProductService) CreateCategory(ctx context.Context, tenantID uint, name string) (*model.ProductCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	category := &model.ProductCategory{TenantID: tenantID, Name: name}
	if err := database.FromContext(ctx, s.db).Create(category).Error; err != nil {
		return nil, writeError(err, "category "+name+" already exists", "category")
	}
	return category, nil
}

// GetCategory returns a category of the tenant
func (s *ProductService) GetCategory(ctx context.Context, tenantID, id uint) (*model.ProductCategory, error) {
	var category model.ProductCategory
	err := database.FromContext(ctx, s.db).Where("id = ? AND tenant_id = ?", id, tenantID).First(&category).Error
	if err != nil {
		return nil, lookupError(err, "category", id)
	}
	return &category, nil
}

// ListCategories returns the tenant's categories
func (s *ProductService) ListCategories(ctx context.Context, tenantID uint) ([]model.ProductCategory, error) {
	categories := []model.ProductCategory{}
	if err := database.FromContext(ctx, s.db).Where("tenant_id = ?", tenantID).Order("name").Find(&categories).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list categories")
	}
	return categories, nil
}

// RenameCategory changes the name of a category
func (s *ProductService) RenameCategory(ctx context.Context, tenantID, id uint, name string) (*model.ProductCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	category, err := s.GetCategory(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := database.FromContext(ctx, s.db).Model(category).Update("name", name).Error; err != nil {
		return nil, writeError(err, "category "+name+" already exists", "category")
	}
	category.Name = name
	return category, nil
}

// DeleteCategory removes a category that no product uses
func (s *ProductService) DeleteCategory(ctx context.Context, tenantID, id uint) error {
	if _, err := s.GetCategory(ctx, tenantID, id); err != nil {
		return err
	}
	var used int64
	if err := database.FromContext(ctx, s.db).Model(&model.Product{}).Where("category_id = ?", id).Count(&used).Error; err != nil {
		return apperror.Internal(err, "failed to count products")
	}
	if used > 0 {
		return apperror.Conflict("category %d is used by %d products", id, used)
	}
	if err := database.FromContext(ctx, s.db).Delete(&model.ProductCategory{}, id).Error; err != nil {
		return apperror.Internal(err, "failed to delete category")
	}
	return nil
}
