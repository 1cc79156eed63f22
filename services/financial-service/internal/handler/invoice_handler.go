package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/service"
	"github.com/suteetoe/erpsuite/services/financial-service/prometheus"
)

// InvoiceItemRequest is one line of an invoice request
type InvoiceItemRequest struct {
	ProductID       *uint            `json:"product_id"`
	Description     string           `json:"description"`
	Quantity        int              `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	TaxPercent      *decimal.Decimal `json:"tax_percent"`
}

// CreateInvoiceRequest defines the request body for creating an invoice
type CreateInvoiceRequest struct {
	InvoiceType    model.InvoiceType    `json:"invoice_type"`
	OrderID        *uint                `json:"order_id"`
	CustomerID     uint                 `json:"customer_id"`
	InvoiceDate    *time.Time           `json:"invoice_date"`
	DueDate        *time.Time           `json:"due_date"`
	Currency       string               `json:"currency"`
	Items          []InvoiceItemRequest `json:"items"`
	Subtotal       *decimal.Decimal     `json:"subtotal"`
	TaxAmount      *decimal.Decimal     `json:"tax_amount"`
	DiscountAmount *decimal.Decimal     `json:"discount_amount"`
	Notes          string               `json:"notes"`
}

// PaymentRequest defines the request body for recording a payment
type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	PaymentDate *time.Time      `json:"payment_date"`
}

// CreateInvoice handles POST /api/invoices
func CreateInvoice(c echo.Context) error {
	defer prometheus.TrackDBOperation("create_invoice")(time.Now())

	var req CreateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	in := service.CreateInvoiceInput{
		InvoiceType:    req.InvoiceType,
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		InvoiceDate:    req.InvoiceDate,
		DueDate:        req.DueDate,
		Currency:       req.Currency,
		Subtotal:       req.Subtotal,
		TaxAmount:      req.TaxAmount,
		DiscountAmount: req.DiscountAmount,
		Notes:          req.Notes,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.InvoiceItemInput{
			ProductID:       item.ProductID,
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxPercent:      item.TaxPercent,
		})
	}

	inv, err := invoices.CreateInvoice(c.Request().Context(), tenantID(c), userID(c), in)
	if err != nil {
		return fail(c, err, "create_invoice")
	}
	prometheus.RecordInvoiceOperation("create")
	return c.JSON(http.StatusCreated, inv)
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperror.Validation("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}

// ListInvoices handles GET /api/invoices?status=&type=&customer_id=&from=&to=&limit=&offset=
func ListInvoices(c echo.Context) error {
	defer prometheus.TrackDBOperation("list_invoices")(time.Now())

	filter := service.InvoiceFilter{
		Status:      model.InvoiceStatus(c.QueryParam("status")),
		InvoiceType: model.InvoiceType(c.QueryParam("type")),
	}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if raw := c.QueryParam("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fail(c, apperror.Validation("invalid customer_id %q", raw), "invalid_customer_id")
		}
		filter.CustomerID = uint(id)
	}
	var err error
	if filter.From, err = parseDate(c.QueryParam("from")); err != nil {
		return fail(c, err, "invalid_date")
	}
	if filter.To, err = parseDate(c.QueryParam("to")); err != nil {
		return fail(c, err, "invalid_date")
	}
	if filter.To != nil {
		end := endOfDay(*filter.To)
		filter.To = &end
	}

	list, total, err := invoices.ListInvoices(c.Request().Context(), tenantID(c), filter)
	if err != nil {
		return fail(c, err, "list_invoices")
	}
	return c.JSON(http.StatusOK, echo.Map{"invoices": list, "total": total})
}

// GetInvoice handles GET /api/invoices/:id
func GetInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_invoice_id")
	}
	inv, err := invoices.GetInvoice(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, "get_invoice")
	}
	return c.JSON(http.StatusOK, inv)
}

func transition(c echo.Context, operation string, fn func(ctx context.Context, tenantID, id uint) (*model.Invoice, error)) error {
	defer prometheus.TrackDBOperation(operation + "_invoice")(time.Now())

	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_invoice_id")
	}
	inv, err := fn(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, operation+"_invoice")
	}
	prometheus.RecordInvoiceOperation(operation)
	return c.JSON(http.StatusOK, inv)
}

// SendInvoice handles POST /api/invoices/:id/send
func SendInvoice(c echo.Context) error {
	return transition(c, "send", invoices.SendInvoice)
}

// CancelInvoice handles POST /api/invoices/:id/cancel
func CancelInvoice(c echo.Context) error {
	return transition(c, "cancel", invoices.CancelInvoice)
}

// PayInvoice handles POST /api/invoices/:id/pay
func PayInvoice(c echo.Context) error {
	defer prometheus.TrackDBOperation("pay_invoice")(time.Now())

	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_invoice_id")
	}
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	inv, err := invoices.RecordPayment(c.Request().Context(), tenantID(c), id, userID(c), service.PaymentInput{
		Amount:      req.Amount,
		Method:      req.Method,
		Reference:   req.Reference,
		PaymentDate: req.PaymentDate,
	})
	if err != nil {
		return fail(c, err, "pay_invoice")
	}
	prometheus.RecordPayment()
	prometheus.RecordInvoiceOperation("pay")
	return c.JSON(http.StatusOK, inv)
}

// ListPayments handles GET /api/invoices/:id/payments
func ListPayments(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_invoice_id")
	}
	payments, err := invoices.ListPayments(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, "list_payments")
	}
	return c.JSON(http.StatusOK, payments)
}
