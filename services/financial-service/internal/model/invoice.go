package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes billing documents
type InvoiceType string

const (
	InvoiceTypeSales      InvoiceType = "SALES"
	InvoiceTypePurchase   InvoiceType = "PURCHASE"
	InvoiceTypeCreditNote InvoiceType = "CREDIT_NOTE"
	InvoiceTypeDebitNote  InvoiceType = "DEBIT_NOTE"
)

// Valid reports whether t is a known invoice type
func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeSales, InvoiceTypePurchase, InvoiceTypeCreditNote, InvoiceTypeDebitNote:
		return true
	}
	return false
}

// InvoiceStatus is the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is a billing document. OrderID and InvoiceType together identify
// the invoice generated for an order.
type Invoice struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	InvoiceNumber  string          `json:"invoice_number" gorm:"type:varchar(50);uniqueIndex;not null"`
	TenantID       uint            `json:"tenant_id" gorm:"index;not null"`
	InvoiceType    InvoiceType     `json:"invoice_type" gorm:"type:varchar(20);not null;uniqueIndex:idx_invoices_order_type,priority:2"`
	OrderID        *uint           `json:"order_id,omitempty" gorm:"uniqueIndex:idx_invoices_order_type,priority:1"`
	CustomerID     uint            `json:"customer_id" gorm:"index;not null"`
	Status         InvoiceStatus   `json:"status" gorm:"type:varchar(20);index;not null"`
	InvoiceDate    time.Time       `json:"invoice_date" gorm:"index;not null"`
	DueDate        time.Time       `json:"due_date" gorm:"not null"`
	Currency       string          `json:"currency" gorm:"type:varchar(3);not null"`
	Subtotal       decimal.Decimal `json:"subtotal" gorm:"type:numeric(18,2);not null"`
	TaxAmount      decimal.Decimal `json:"tax_amount" gorm:"type:numeric(18,2);not null"`
	DiscountAmount decimal.Decimal `json:"discount_amount" gorm:"type:numeric(18,2);not null"`
	TotalAmount    decimal.Decimal `json:"total_amount" gorm:"type:numeric(18,2);not null"`
	PaidAmount     decimal.Decimal `json:"paid_amount" gorm:"type:numeric(18,2);not null"`
	BalanceAmount  decimal.Decimal `json:"balance_amount" gorm:"type:numeric(18,2);not null"`
	Notes          string          `json:"notes" gorm:"type:text"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CreatedBy      *uint           `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Items    []InvoiceItem `json:"items" gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `json:"payments,omitempty" gorm:"foreignKey:InvoiceID"`
}

// InvoiceItem is one billed line
type InvoiceItem struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	InvoiceID       uint            `json:"invoice_id" gorm:"index;not null"`
	ProductID       *uint           `json:"product_id,omitempty" gorm:"index"`
	Description     string          `json:"description" gorm:"type:varchar(255);not null"`
	Quantity        int             `json:"quantity" gorm:"not null"`
	UnitPrice       decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,2);not null"`
	DiscountPercent decimal.Decimal `json:"discount_percent" gorm:"type:numeric(5,2);not null"`
	TaxPercent      decimal.Decimal `json:"tax_percent" gorm:"type:numeric(5,2);not null"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" gorm:"type:numeric(18,2);not null"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:numeric(18,2);not null"`
	TaxAmount       decimal.Decimal `json:"tax_amount" gorm:"type:numeric(18,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:numeric(18,2);not null"`
}

// Payment is money received against an invoice
type Payment struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	InvoiceID   uint            `json:"invoice_id" gorm:"index;not null"`
	TenantID    uint            `json:"tenant_id" gorm:"index;not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(18,2);not null"`
	PaymentDate time.Time       `json:"payment_date" gorm:"not null"`
	Method      string          `json:"method" gorm:"type:varchar(30)"`
	Reference   string          `json:"reference" gorm:"type:varchar(100)"`
	CreatedBy   *uint           `json:"created_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AllModels lists the tables of this service
func AllModels() []interface{} {
	return []interface{}{&Invoice{}, &InvoiceItem{}, &Payment{}}
}
