package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer represents the customer model stored in the database
type Customer struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	TenantID        uint            `json:"tenant_id" gorm:"not null;uniqueIndex:idx_customers_tenant_code;comment:'Tenant this customer belongs to'"`
	Code            string          `json:"code" gorm:"type:varchar(50);not null;uniqueIndex:idx_customers_tenant_code"`
	Name            string          `json:"name" gorm:"type:varchar(100);index;not null"`
	ContactPerson   string          `json:"contact_person" gorm:"type:varchar(100)"`
	Email           string          `json:"email" gorm:"type:varchar(100)"`
	Phone           string          `json:"phone" gorm:"type:varchar(20)"`
	BillingAddress  string          `json:"billing_address" gorm:"type:text"`
	ShippingAddress string          `json:"shipping_address" gorm:"type:text"`
	City            string          `json:"city" gorm:"type:varchar(50)"`
	Country         string          `json:"country" gorm:"type:varchar(50)"`
	PostalCode      string          `json:"postal_code" gorm:"type:varchar(20)"`
	TaxID           string          `json:"tax_id" gorm:"type:varchar(50)"`
	PaymentTerms    string          `json:"payment_terms" gorm:"type:varchar(100)"`
	Currency        string          `json:"currency" gorm:"type:varchar(3);not null"`
	CreditLimit     decimal.Decimal `json:"credit_limit" gorm:"type:numeric(18,2);not null"`
	Notes           string          `json:"notes" gorm:"type:text"`
	IsActive        bool            `json:"is_active"`
	CreatedBy       uint            `json:"created_by" gorm:"index"`
	UpdatedBy       uint            `json:"updated_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"deleted_at,omitempty" gorm:"index"`
}
