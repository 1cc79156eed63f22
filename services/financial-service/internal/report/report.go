// Package report aggregates invoices into sales and receivables summaries.
// Amounts are summed in Go so that bucketing does not depend on the date
// functions of the database.
package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
	"gorm.io/gorm"
)

const (
	topProductsLimit = 10
	day              = 24 * time.Hour
)

var hundred = decimal.NewFromInt(100)

// Query selects the invoices of a report. From and To are inclusive.
type Query struct {
	From     time.Time
	To       time.Time
	Currency string
	Period   Period
}

// PeriodRevenue is the revenue of one bucket
type PeriodRevenue struct {
	Period  string          `json:"period"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
}

// ProductRevenue is the revenue of one product
type ProductRevenue struct {
	ProductID   uint            `json:"product_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// SalesOverview summarizes SALES invoices of a window
type SalesOverview struct {
	From              time.Time        `json:"from"`
	To                time.Time        `json:"to"`
	Currency          string           `json:"currency,omitempty"`
	Period            Period           `json:"period"`
	TotalRevenue      decimal.Decimal  `json:"total_revenue"`
	OrderCount        int              `json:"order_count"`
	AverageOrderValue decimal.Decimal  `json:"average_order_value"`
	RevenueByPeriod   []PeriodRevenue  `json:"revenue_by_period"`
	TopProducts       []ProductRevenue `json:"top_products"`
	PreviousRevenue   decimal.Decimal  `json:"previous_revenue"`
	GrowthPercent     decimal.Decimal  `json:"growth_percent"`
}

// StatusSummary aggregates the invoices of one status
type StatusSummary struct {
	Status        model.InvoiceStatus `json:"status"`
	Count         int                 `json:"count"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	BalanceAmount decimal.Decimal     `json:"balance_amount"`
}

// InvoiceSummary summarizes receivables of a window
type InvoiceSummary struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	Currency         string          `json:"currency,omitempty"`
	InvoiceCount     int             `json:"invoice_count"`
	ByStatus         []StatusSummary `json:"by_status"`
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	OverdueCount     int             `json:"overdue_count"`
	OverdueAmount    decimal.Decimal `json:"overdue_amount"`
}

// Service answers report queries
type Service struct {
	db *gorm.DB
}

// NewService creates a report service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func validate(q *Query) error {
	if q.From.IsZero() || q.To.IsZero() {
		return apperror.Validation("from and to are required")
	}
	if q.To.Before(q.From) {
		return apperror.Validation("to must not be before from")
	}
	q.Currency = strings.ToUpper(strings.TrimSpace(q.Currency))
	return nil
}

// salesInvoices loads the non-cancelled SALES invoices dated in [from, to]
// or, when exclusiveTo is set, in [from, to)
func (s *Service) salesInvoices(ctx context.Context, tenantID uint, from, to time.Time, exclusiveTo bool, currency string, withItems bool) ([]model.Invoice, error) {
	q := database.FromContext(ctx, s.db).
		Where("tenant_id = ? AND invoice_type = ? AND status <> ?", tenantID, model.InvoiceTypeSales, model.InvoiceStatusCancelled).
		Where("invoice_date >= ?", from)
	if exclusiveTo {
		q = q.Where("invoice_date < ?", to)
	} else {
		q = q.Where("invoice_date <= ?", to)
	}
	if currency != "" {
		q = q.Where("currency = ?", currency)
	}
	if withItems {
		q = q.Preload("Items")
	}
	invoices := []model.Invoice{}
	if err := q.Order("invoice_date").Find(&invoices).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load invoices")
	}
	return invoices, nil
}

// SalesOverview totals revenue of the window, buckets it by q.Period, ranks
// the top products and compares against the equally long window that ends
// where this one starts.
func (s *Service) SalesOverview(ctx context.Context, tenantID uint, q Query) (*SalesOverview, error) {
	if err := validate(&q); err != nil {
		return nil, err
	}
	if q.Period == "" {
		q.Period = PeriodMonthly
	}

	invoices, err := s.salesInvoices(ctx, tenantID, q.From, q.To, false, q.Currency, true)
	if err != nil {
		return nil, err
	}

	out := &SalesOverview{
		From:            q.From,
		To:              q.To,
		Currency:        q.Currency,
		Period:          q.Period,
		TotalRevenue:    decimal.Zero,
		OrderCount:      len(invoices),
		RevenueByPeriod: []PeriodRevenue{},
		TopProducts:     []ProductRevenue{},
	}

	buckets := map[string]*PeriodRevenue{}
	products := map[uint]*ProductRevenue{}
	for _, inv := range invoices {
		out.TotalRevenue = out.TotalRevenue.Add(inv.TotalAmount)

		key := BucketKey(inv.InvoiceDate, q.Period)
		b, ok := buckets[key]
		if !ok {
			b = &PeriodRevenue{Period: key, Revenue: decimal.Zero}
			buckets[key] = b
		}
		b.Revenue = b.Revenue.Add(inv.TotalAmount)
		b.Count++

		for _, item := range inv.Items {
			if item.ProductID == nil {
				continue
			}
			p, ok := products[*item.ProductID]
			if !ok {
				p = &ProductRevenue{ProductID: *item.ProductID, Description: item.Description, Revenue: decimal.Zero}
				products[*item.ProductID] = p
			}
			p.Quantity += item.Quantity
			p.Revenue = p.Revenue.Add(item.Total)
		}
	}

	for _, b := range buckets {
		out.RevenueByPeriod = append(out.RevenueByPeriod, *b)
	}
	sort.Slice(out.RevenueByPeriod, func(i, j int) bool {
		return out.RevenueByPeriod[i].Period < out.RevenueByPeriod[j].Period
	})

	for _, p := range products {
		out.TopProducts = append(out.TopProducts, *p)
	}
	sort.Slice(out.TopProducts, func(i, j int) bool {
		a, b := out.TopProducts[i], out.TopProducts[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.ProductID < b.ProductID
	})
	if len(out.TopProducts) > topProductsLimit {
		out.TopProducts = out.TopProducts[:topProductsLimit]
	}

	out.AverageOrderValue = decimal.Zero
	if out.OrderCount > 0 {
		out.AverageOrderValue = out.TotalRevenue.Div(decimal.NewFromInt(int64(out.OrderCount))).Round(2)
	}

	previous, err := s.salesInvoices(ctx, tenantID, previousFrom(q), q.From, true, q.Currency, false)
	if err != nil {
		return nil, err
	}
	out.PreviousRevenue = decimal.Zero
	for _, inv := range previous {
		out.PreviousRevenue = out.PreviousRevenue.Add(inv.TotalAmount)
	}
	out.GrowthPercent = Growth(out.TotalRevenue, out.PreviousRevenue)
	return out, nil
}

// previousFrom starts the comparison window. The window length is rounded up
// to whole days so an inclusive end of day (next midnight minus 1ns) still
// reaches back to midnight of the first preceding day.
func previousFrom(q Query) time.Time {
	days := (q.To.Sub(q.From) + day - 1) / day
	return q.From.AddDate(0, 0, -int(days))
}

// Growth is the change from previous to current in percent. Growth from
// nothing is 100 when there is revenue now and 0 otherwise.
func Growth(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// InvoiceSummary counts and sums the invoices of the window by status
func (s *Service) InvoiceSummary(ctx context.Context, tenantID uint, q Query) (*InvoiceSummary, error) {
	if err := validate(&q); err != nil {
		return nil, err
	}

	db := database.FromContext(ctx, s.db).
		Where("tenant_id = ? AND invoice_date >= ? AND invoice_date <= ?", tenantID, q.From, q.To)
	if q.Currency != "" {
		db = db.Where("currency = ?", q.Currency)
	}
	invoices := []model.Invoice{}
	if err := db.Find(&invoices).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load invoices")
	}

	out := &InvoiceSummary{
		From:             q.From,
		To:               q.To,
		Currency:         q.Currency,
		InvoiceCount:     len(invoices),
		ByStatus:         []StatusSummary{},
		TotalInvoiced:    decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		OverdueAmount:    decimal.Zero,
	}
	byStatus := map[model.InvoiceStatus]*StatusSummary{}
	for _, inv := range invoices {
		st, ok := byStatus[inv.Status]
		if !ok {
			st = &StatusSummary{Status: inv.Status, TotalAmount: decimal.Zero, PaidAmount: decimal.Zero, BalanceAmount: decimal.Zero}
			byStatus[inv.Status] = st
		}
		st.Count++
		st.TotalAmount = st.TotalAmount.Add(inv.TotalAmount)
		st.PaidAmount = st.PaidAmount.Add(inv.PaidAmount)
		st.BalanceAmount = st.BalanceAmount.Add(inv.BalanceAmount)

		switch inv.Status {
		case model.InvoiceStatusCancelled:
			continue
		case model.InvoiceStatusSent:
			out.TotalOutstanding = out.TotalOutstanding.Add(inv.BalanceAmount)
		case model.InvoiceStatusOverdue:
			out.TotalOutstanding = out.TotalOutstanding.Add(inv.BalanceAmount)
			out.OverdueCount++
			out.OverdueAmount = out.OverdueAmount.Add(inv.BalanceAmount)
		}
		out.TotalInvoiced = out.TotalInvoiced.Add(inv.TotalAmount)
		out.TotalPaid = out.TotalPaid.Add(inv.PaidAmount)
	}

	for _, st := range byStatus {
		out.ByStatus = append(out.ByStatus, *st)
	}
	sort.Slice(out.ByStatus, func(i, j int) bool { return out.ByStatus[i].Status < out.ByStatus[j].Status })
	return out, nil
}
