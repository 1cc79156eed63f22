package service

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/services/product-service/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Resolution is the answer of the price endpoint
type Resolution struct {
	Price          decimal.Decimal `json:"price"`
	PriceType      model.PriceType `json:"priceType"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	AppliedPriceID *uint           `json:"appliedPriceId"`
}

// Unpriced reports whether no price row applied
func (r Resolution) Unpriced() bool {
	return r.PriceType == model.PriceTypeUnpriced
}

// Resolve picks the price of one unit out of rows. Tiers are tried in order:
// the customer's negotiated price, then the volume tier whose range holds
// quantity (highest min_quantity wins), then the standard price. Only active
// rows valid at now take part. The outcome does not depend on the order of rows.
func Resolve(rows []model.ProductPrice, customerID *uint, quantity int, now time.Time) Resolution {
	var customer, volume, standard *model.ProductPrice

	for i := range rows {
		row := &rows[i]
		if !row.IsActive || !validAt(row, now) {
			continue
		}
		switch row.PriceType {
		case model.PriceTypeCustomer:
			if customerID == nil || row.CustomerID == nil || *row.CustomerID != *customerID {
				continue
			}
			if !inRange(row, quantity) {
				continue
			}
			if customer == nil || better(row, customer) {
				customer = row
			}
		case model.PriceTypeVolume:
			if !inRange(row, quantity) {
				continue
			}
			if volume == nil || better(row, volume) {
				volume = row
			}
		case model.PriceTypeStandard:
			if standard == nil || newer(row, standard) {
				standard = row
			}
		}
	}

	switch {
	case customer != nil:
		return resolution(customer)
	case volume != nil:
		return resolution(volume)
	case standard != nil:
		return resolution(standard)
	}
	return Resolution{
		Price:          decimal.Zero,
		PriceType:      model.PriceTypeUnpriced,
		DiscountAmount: decimal.Zero,
		FinalPrice:     decimal.Zero,
	}
}

func resolution(row *model.ProductPrice) Resolution {
	price := row.Price.Round(2)
	discount := price.Mul(row.DiscountPercent).Div(hundred).Round(2)
	id := row.ID
	return Resolution{
		Price:          price,
		PriceType:      row.PriceType,
		DiscountAmount: discount,
		FinalPrice:     price.Sub(discount),
		AppliedPriceID: &id,
	}
}

func validAt(row *model.ProductPrice, now time.Time) bool {
	if row.ValidFrom != nil && now.Before(*row.ValidFrom) {
		return false
	}
	if row.ValidTo != nil && now.After(*row.ValidTo) {
		return false
	}
	return true
}

func inRange(row *model.ProductPrice, quantity int) bool {
	if row.MinQuantity != nil && quantity < *row.MinQuantity {
		return false
	}
	if row.MaxQuantity != nil && quantity > *row.MaxQuantity {
		return false
	}
	return true
}

func minQuantity(row *model.ProductPrice) int {
	if row.MinQuantity == nil {
		return 0
	}
	return *row.MinQuantity
}

// better orders rows of one tier: highest min_quantity, then newest
func better(a, b *model.ProductPrice) bool {
	if minQuantity(a) != minQuantity(b) {
		return minQuantity(a) > minQuantity(b)
	}
	return newer(a, b)
}

// newer prefers the latest valid_from, then the highest id
func newer(a, b *model.ProductPrice) bool {
	af, bf := a.ValidFrom, b.ValidFrom
	switch {
	case af != nil && bf == nil:
		return true
	case af == nil && bf != nil:
		return false
	case af != nil && bf != nil && !af.Equal(*bf):
		return af.After(*bf)
	}
	return a.ID > b.ID
}
