package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/model"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/service"
	"github.com/suteetoe/erpsuite/services/sales-service/prometheus"
)

// CreateQuotationRequest defines the request body for creating a quotation
type CreateQuotationRequest struct {
	CustomerID     uint             `json:"customer_id"`
	WarehouseID    uint             `json:"warehouse_id"`
	Items          []ItemRequest    `json:"items"`
	Currency       string           `json:"currency"`
	TaxAmount      *decimal.Decimal `json:"tax_amount"`
	ShippingAmount *decimal.Decimal `json:"shipping_amount"`
	DiscountAmount *decimal.Decimal `json:"discount_amount"`
	ValidUntil     *time.Time       `json:"valid_until"`
	Notes          string           `json:"notes"`
}

// CreateQuotation handles POST /api/quotations
func CreateQuotation(c echo.Context) error {
	defer prometheus.TrackDBOperation("create_quotation")(time.Now())

	var req CreateQuotationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	q, err := quotations.CreateQuotation(c.Request().Context(), tenantID(c), userID(c), service.CreateQuotationInput{
		CustomerID:     req.CustomerID,
		WarehouseID:    req.WarehouseID,
		Items:          itemInputs(req.Items),
		Currency:       req.Currency,
		TaxAmount:      req.TaxAmount,
		ShippingAmount: req.ShippingAmount,
		DiscountAmount: req.DiscountAmount,
		ValidUntil:     req.ValidUntil,
		Notes:          req.Notes,
	})
	if err != nil {
		return fail(c, err, "create_quotation")
	}
	prometheus.RecordQuotationOperation("create")
	return c.JSON(http.StatusCreated, q)
}

// ListQuotations handles GET /api/quotations?status=
func ListQuotations(c echo.Context) error {
	list, err := quotations.ListQuotations(c.Request().Context(), tenantID(c), model.QuotationStatus(c.QueryParam("status")))
	if err != nil {
		return fail(c, err, "list_quotations")
	}
	return c.JSON(http.StatusOK, list)
}

// GetQuotation handles GET /api/quotations/:id
func GetQuotation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_quotation_id")
	}
	q, err := quotations.GetQuotation(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, "get_quotation")
	}
	return c.JSON(http.StatusOK, q)
}

// ConvertQuotation handles POST /api/quotations/:id/convert-to-order
func ConvertQuotation(c echo.Context) error {
	defer prometheus.TrackDBOperation("convert_quotation")(time.Now())

	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_quotation_id")
	}
	order, err := quotations.ConvertToOrder(c.Request().Context(), tenantID(c), userID(c), id)
	if err != nil {
		return fail(c, err, "convert_quotation")
	}
	prometheus.RecordQuotationOperation("convert")
	prometheus.RecordOrderOperation("create")
	return c.JSON(http.StatusCreated, order)
}
