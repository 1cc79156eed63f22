package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents the product master data
type Product struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	TenantID    uint           `json:"tenant_id" gorm:"not null;uniqueIndex:idx_products_tenant_sku;comment:'Tenant this product belongs to'"`
	SKU         string         `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex:idx_products_tenant_sku"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Unit        string         `json:"unit" gorm:"type:varchar(20)"`
	Stock       int            `json:"stock"`
	CategoryID  *uint          `json:"category_id,omitempty" gorm:"index"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	Category *ProductCategory `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// ProductCategory represents product categories
type ProductCategory struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	TenantID  uint           `json:"tenant_id" gorm:"not null;uniqueIndex:idx_categories_tenant_name;comment:'Tenant this category belongs to'"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_categories_tenant_name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// PriceType is the pricing tier of a price row
type PriceType string

const (
	PriceTypeCustomer PriceType = "CUSTOMER"
	PriceTypeVolume   PriceType = "VOLUME"
	PriceTypeStandard PriceType = "STANDARD"
	// PriceTypeUnpriced is reported when no row applies; it is never stored
	PriceTypeUnpriced PriceType = "UNPRICED"
)

// Valid reports whether t may be stored on a price row
func (t PriceType) Valid() bool {
	switch t {
	case PriceTypeCustomer, PriceTypeVolume, PriceTypeStandard:
		return true
	}
	return false
}

// ProductPrice is one price row of a product. CUSTOMER rows carry a
// customer id, VOLUME rows a quantity range; open bounds are nil.
type ProductPrice struct {
	ID              uint            `json:"id" gorm:"primarykey"`
	TenantID        uint            `json:"tenant_id" gorm:"index;not null"`
	ProductID       uint            `json:"product_id" gorm:"index;not null"`
	PriceType       PriceType       `json:"price_type" gorm:"type:varchar(20);not null"`
	CustomerID      *uint           `json:"customer_id,omitempty" gorm:"index"`
	MinQuantity     *int            `json:"min_quantity,omitempty"`
	MaxQuantity     *int            `json:"max_quantity,omitempty"`
	Price           decimal.Decimal `json:"price" gorm:"type:numeric(18,2);not null"`
	DiscountPercent decimal.Decimal `json:"discount_percent" gorm:"type:numeric(5,2);not null"`
	ValidFrom       *time.Time      `json:"valid_from,omitempty"`
	ValidTo         *time.Time      `json:"valid_to,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// AllModels lists the tables of this service in migration order
func AllModels() []interface{} {
	return []interface{}{&ProductCategory{}, &Product{}, &ProductPrice{}}
}
