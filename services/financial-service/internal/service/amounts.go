package service

import (
	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
)

var hundred = decimal.NewFromInt(100)

// lineAmounts fills the computed columns of item. The line discount is
// netted into the subtotal and tax applies to what remains.
func lineAmounts(item *model.InvoiceItem) {
	gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	item.DiscountAmount = gross.Mul(item.DiscountPercent).Div(hundred).Round(2)
	item.Subtotal = gross.Sub(item.DiscountAmount).Round(2)
	item.TaxAmount = item.Subtotal.Mul(item.TaxPercent).Div(hundred).Round(2)
	item.Total = item.Subtotal.Add(item.TaxAmount)
}

// totals sums the items into the invoice header. Non-nil overrides replace
// the computed subtotal, tax or discount.
func totals(inv *model.Invoice, subtotal, tax, discount *decimal.Decimal) {
	inv.Subtotal, inv.TaxAmount, inv.DiscountAmount = decimal.Zero, decimal.Zero, decimal.Zero
	for i := range inv.Items {
		lineAmounts(&inv.Items[i])
		inv.Subtotal = inv.Subtotal.Add(inv.Items[i].Subtotal)
		inv.TaxAmount = inv.TaxAmount.Add(inv.Items[i].TaxAmount)
		inv.DiscountAmount = inv.DiscountAmount.Add(inv.Items[i].DiscountAmount)
	}
	if subtotal != nil {
		inv.Subtotal = subtotal.Round(2)
	}
	if tax != nil {
		inv.TaxAmount = tax.Round(2)
	}
	if discount != nil {
		inv.DiscountAmount = discount.Round(2)
	}
	inv.TotalAmount = inv.Subtotal.Add(inv.TaxAmount)
	inv.BalanceAmount = inv.TotalAmount.Sub(inv.PaidAmount)
}
