package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a sales order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// SalesOrder is a customer order with its priced items
type SalesOrder struct {
	ID                   uint            `json:"id" gorm:"primaryKey"`
	OrderNumber          string          `json:"order_number" gorm:"type:varchar(50);uniqueIndex;not null"`
	TenantID             uint            `json:"tenant_id" gorm:"index;not null"`
	CustomerID           uint            `json:"customer_id" gorm:"index;not null"`
	CustomerName         string          `json:"customer_name" gorm:"type:varchar(100)"`
	CustomerEmail        string          `json:"customer_email" gorm:"type:varchar(100)"`
	CustomerPhone        string          `json:"customer_phone" gorm:"type:varchar(20)"`
	WarehouseID          uint            `json:"warehouse_id" gorm:"not null"`
	QuotationID          *uint           `json:"quotation_id,omitempty" gorm:"index"`
	Status               OrderStatus     `json:"status" gorm:"type:varchar(20);index;not null"`
	Currency             string          `json:"currency" gorm:"type:varchar(3);not null"`
	OrderDate            time.Time       `json:"order_date" gorm:"not null"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	ShippedDate          *time.Time      `json:"shipped_date,omitempty"`
	BillingAddress       string          `json:"billing_address" gorm:"type:text"`
	ShippingAddress      string          `json:"shipping_address" gorm:"type:text"`
	Subtotal             decimal.Decimal `json:"subtotal" gorm:"type:numeric(18,2);not null"`
	TaxAmount            decimal.Decimal `json:"tax_amount" gorm:"type:numeric(18,2);not null"`
	ShippingAmount       decimal.Decimal `json:"shipping_amount" gorm:"type:numeric(18,2);not null"`
	DiscountAmount       decimal.Decimal `json:"discount_amount" gorm:"type:numeric(18,2);not null"`
	TotalAmount          decimal.Decimal `json:"total_amount" gorm:"type:numeric(18,2);not null"`
	Notes                string          `json:"notes" gorm:"type:text"`
	CreatedBy            uint            `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	Items []SalesOrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

// SalesOrderItem is one priced line of an order
type SalesOrderItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	OrderID        uint            `json:"order_id" gorm:"index;not null"`
	ProductID      uint            `json:"product_id" gorm:"not null"`
	Description    string          `json:"description" gorm:"type:varchar(255)"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2);not null"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:numeric(18,2);not null"`
	FinalPrice     decimal.Decimal `json:"final_price" gorm:"type:numeric(18,2);not null"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:numeric(18,2);not null"`
	PriceType      string          `json:"price_type" gorm:"type:varchar(20)"`
	AppliedPriceID *uint           `json:"applied_price_id,omitempty"`
	Notes          string          `json:"notes" gorm:"type:text"`
}

// QuotationStatus is the lifecycle state of a quotation
type QuotationStatus string

const (
	QuotationStatusOpen      QuotationStatus = "OPEN"
	QuotationStatusConverted QuotationStatus = "CONVERTED"
	QuotationStatusCancelled QuotationStatus = "CANCELLED"
)

// Quotation is a priced offer that can be turned into an order once
type Quotation struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	QuotationNumber string          `json:"quotation_number" gorm:"type:varchar(50);uniqueIndex;not null"`
	TenantID        uint            `json:"tenant_id" gorm:"index;not null"`
	CustomerID      uint            `json:"customer_id" gorm:"index;not null"`
	WarehouseID     uint            `json:"warehouse_id" gorm:"not null"`
	Status          QuotationStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	Currency        string          `json:"currency" gorm:"type:varchar(3);not null"`
	ValidUntil      *time.Time      `json:"valid_until,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(18,2);not null"`
	TaxAmount       decimal.Decimal `json:"tax_amount" gorm:"type:numeric(18,2);not null"`
	ShippingAmount  decimal.Decimal `json:"shipping_amount" gorm:"type:numeric(18,2);not null"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" gorm:"type:numeric(18,2);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:numeric(18,2);not null"`
	OrderID         *uint           `json:"order_id,omitempty"`
	Notes           string          `json:"notes" gorm:"type:text"`
	CreatedBy       uint            `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Items []QuotationItem `json:"items" gorm:"foreignKey:QuotationID"`
}

// QuotationItem is one priced line of a quotation
type QuotationItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	QuotationID    uint            `json:"quotation_id" gorm:"index;not null"`
	ProductID      uint            `json:"product_id" gorm:"not null"`
	Description    string          `json:"description" gorm:"type:varchar(255)"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	UnitPrice      decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2);not null"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:numeric(18,2);not null"`
	FinalPrice     decimal.Decimal `json:"final_price" gorm:"type:numeric(18,2);not null"`
	LineTotal      decimal.Decimal `json:"line_total" gorm:"type:numeric(18,2);not null"`
	PriceType      string          `json:"price_type" gorm:"type:varchar(20)"`
}

// AllModels lists the tables of this service
func AllModels() []interface{} {
	return []interface{}{&SalesOrder{}, &SalesOrderItem{}, &Quotation{}, &QuotationItem{}}
}
