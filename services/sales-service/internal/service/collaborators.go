package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceTypeUnpriced marks an item for which no price row applied
const PriceTypeUnpriced = "UNPRICED"

// Customer is the part of a customer record an order needs
type Customer struct {
	ID              uint   `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	BillingAddress  string `json:"billing_address"`
	ShippingAddress string `json:"shipping_address"`
	Currency        string `json:"currency"`
	IsActive        bool   `json:"is_active"`
}

// CustomerValidator looks up the customer of an order. A missing customer
// is reported as a not-found error.
type CustomerValidator interface {
	GetCustomer(ctx context.Context, customerID uint) (*Customer, error)
}

// Price is the resolved unit price of a product
type Price struct {
	Price          decimal.Decimal `json:"price"`
	PriceType      string          `json:"priceType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	AppliedPriceID *uint           `json:"appliedPriceId"`
}

// PriceResolver returns the unit price of productID for customerID buying quantity
type PriceResolver interface {
	ResolvePrice(ctx context.Context, productID, customerID uint, quantity int) (*Price, error)
}
