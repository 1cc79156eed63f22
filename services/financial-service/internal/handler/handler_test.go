package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/report"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/service"
	gormlogger "gorm.io/gorm/logger"
)

var testJWT = jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test", ExpirationHours: 1})

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	db, err := database.Open(&config.DBConfig{Driver: "sqlite", DBName: ":memory:", LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	InitHandlers(
		service.NewInvoiceService(db, &config.FinanceConfig{DefaultTaxPercent: 10, PaymentTermDays: 30}),
		report.NewService(db))

	e := echo.New()
	RegisterRoutes(e, testJWT)
	return e
}

func token(t *testing.T, tenantID *uint) string {
	t.Helper()
	tok, err := testJWT.GenerateTokenWithTenant("ar@example.com", "ar", 6, tenantID)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, e *echo.Echo, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const invoiceBody = `{
	"customer_id": 5,
	"invoice_date": "2024-03-10T00:00:00Z",
	"items": [{"product_id": 100, "description": "Consulting", "quantity": 2, "unit_price": "100"}]
}`

func createInvoice(t *testing.T, e *echo.Echo, tok string) model.Invoice {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/invoices", tok, invoiceBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv model.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	return inv
}

func TestInvoiceLifecycleEndpoints(t *testing.T) {
	e := newTestServer(t)
	tenant := uint(3)
	tok := token(t, &tenant)

	inv := createInvoice(t, e, tok)
	assert.Equal(t, model.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "220", inv.TotalAmount.String())
	assert.Equal(t, "2024-04-09", inv.DueDate.UTC().Format("2006-01-02"))
	require.NotNil(t, inv.CreatedBy)
	assert.Equal(t, uint(6), *inv.CreatedBy)

	base := fmt.Sprintf("/api/invoices/%d", inv.ID)

	rec := do(t, e, http.MethodPost, base+"/pay", tok, `{"amount":"50"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodPost, base+"/send", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodPost, base+"/pay", tok, `{"amount":"120","method":"TRANSFER","reference":"TX-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid model.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	assert.Equal(t, "100", paid.BalanceAmount.String())
	assert.Equal(t, model.InvoiceStatusSent, paid.Status)

	rec = do(t, e, http.MethodPost, base+"/pay", tok, `{"amount":"500"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, base+"/payments", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var payments []model.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "TX-1", payments[0].Reference)

	rec = do(t, e, http.MethodPost, base+"/cancel", tok, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	other := uint(4)
	rec = do(t, e, http.MethodGet, base, token(t, &other), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListInvoicesEndpoint(t *testing.T) {
	e := newTestServer(t)
	tenant := uint(3)
	tok := token(t, &tenant)
	createInvoice(t, e, tok)
	createInvoice(t, e, tok)

	rec := do(t, e, http.MethodGet, "/api/invoices?status=DRAFT&from=2024-03-10&to=2024-03-10", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Invoices []model.Invoice `json:"invoices"`
		Total    int64           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Total)
	assert.Len(t, body.Invoices, 2)

	rec = do(t, e, http.MethodGet, "/api/invoices?from=10-03-2024", tok, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportEndpoints(t *testing.T) {
	e := newTestServer(t)
	tenant := uint(3)
	tok := token(t, &tenant)
	inv := createInvoice(t, e, tok)
	require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, fmt.Sprintf("/api/invoices/%d/send", inv.ID), tok, "").Code)

	rec := do(t, e, http.MethodGet, "/api/reports/sales-overview?from=2024-03-01&to=2024-03-31&period=WEEKLY", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var overview report.SalesOverview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, "220", overview.TotalRevenue.String())
	assert.Equal(t, 1, overview.OrderCount)
	require.Len(t, overview.RevenueByPeriod, 1)
	assert.Equal(t, "2024-03-10", overview.RevenueByPeriod[0].Period)

	rec = do(t, e, http.MethodGet, "/api/reports/invoice-summary?from=2024-03-01&to=2024-03-31", tok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary report.InvoiceSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.InvoiceCount)
	assert.Equal(t, "220", summary.TotalOutstanding.String())

	rec = do(t, e, http.MethodGet, "/api/reports/sales-overview?period=HOURLY", tok, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid period \"HOURLY\""}`, rec.Body.String())
}

func TestAuthAndTenantRequired(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/api/invoices", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/reports/invoice-summary", token(t, nil), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	tenant := uint(3)
	rec = do(t, e, http.MethodGet, "/api/invoices/abc", token(t, &tenant), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid invoice id"}`, rec.Body.String())
}
