package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/report"
	"github.com/suteetoe/erpsuite/services/financial-service/prometheus"
)

const defaultReportDays = 30

var now = time.Now

func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// reportQuery reads from/to (YYYY-MM-DD, to inclusive), currency and period.
// Without dates the window is the last 30 days.
func reportQuery(c echo.Context) (report.Query, error) {
	var q report.Query
	from, err := parseDate(c.QueryParam("from"))
	if err != nil {
		return q, err
	}
	to, err := parseDate(c.QueryParam("to"))
	if err != nil {
		return q, err
	}
	if to == nil {
		today := now().UTC().Truncate(24 * time.Hour)
		to = &today
	}
	if from == nil {
		start := to.AddDate(0, 0, -defaultReportDays)
		from = &start
	}
	period, ok := report.ParsePeriod(c.QueryParam("period"))
	if !ok {
		return q, apperror.Validation("invalid period %q", c.QueryParam("period"))
	}

	q.From = *from
	q.To = endOfDay(*to)
	q.Currency = c.QueryParam("currency")
	q.Period = period
	return q, nil
}

// SalesOverview handles GET /api/reports/sales-overview
func SalesOverview(c echo.Context) error {
	defer prometheus.TrackDBOperation("sales_overview")(time.Now())

	q, err := reportQuery(c)
	if err != nil {
		return fail(c, err, "invalid_report_query")
	}
	out, err := reports.SalesOverview(c.Request().Context(), tenantID(c), q)
	if err != nil {
		return fail(c, err, "sales_overview")
	}
	prometheus.RecordReportQuery("sales_overview")
	return c.JSON(http.StatusOK, out)
}

// InvoiceSummary handles GET /api/reports/invoice-summary
func InvoiceSummary(c echo.Context) error {
	defer prometheus.TrackDBOperation("invoice_summary")(time.Now())

	q, err := reportQuery(c)
	if err != nil {
		return fail(c, err, "invalid_report_query")
	}
	out, err := reports.InvoiceSummary(c.Request().Context(), tenantID(c), q)
	if err != nil {
		return fail(c, err, "invoice_summary")
	}
	prometheus.RecordReportQuery("invoice_summary")
	return c.JSON(http.StatusOK, out)
}
