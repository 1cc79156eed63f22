package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/product-service/internal/model"
	"github.com/suteetoe/erpsuite/services/product-service/internal/service"
	"github.com/suteetoe/erpsuite/services/product-service/prometheus"
)

// PriceRequest defines a price row in requests
type PriceRequest struct {
	PriceType       model.PriceType `json:"price_type"`
	CustomerID      *uint           `json:"customer_id"`
	MinQuantity     *int            `json:"min_quantity"`
	MaxQuantity     *int            `json:"max_quantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ValidFrom       *time.Time      `json:"valid_from"`
	ValidTo         *time.Time      `json:"valid_to"`
	IsActive        *bool           `json:"is_active"`
}

func (r PriceRequest) input() service.PriceInput {
	return service.PriceInput{
		PriceType:       r.PriceType,
		CustomerID:      r.CustomerID,
		MinQuantity:     r.MinQuantity,
		MaxQuantity:     r.MaxQuantity,
		Price:           r.Price,
		DiscountPercent: r.DiscountPercent,
		ValidFrom:       r.ValidFrom,
		ValidTo:         r.ValidTo,
		IsActive:        r.IsActive,
	}
}

// ResolvePrice answers GET /products/:id/price?customerId=&quantity=
func ResolvePrice(c echo.Context) error {
	defer prometheus.TrackDBOperation("resolve_price")(time.Now())

	productID, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}

	quantity := 1
	if raw := c.QueryParam("quantity"); raw != "" {
		if quantity, err = strconv.Atoi(raw); err != nil {
			return fail(c, apperror.Validation("invalid quantity %q", raw), "invalid_quantity")
		}
	}
	var customerID *uint
	if raw := c.QueryParam("customerId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fail(c, apperror.Validation("invalid customerId %q", raw), "invalid_customer_id")
		}
		cid := uint(id)
		customerID = &cid
	}

	res, err := prices.ResolvePrice(c.Request().Context(), tenantID(c), productID, customerID, quantity)
	if err != nil {
		return fail(c, err, "resolve_price")
	}
	prometheus.RecordPriceResolution(string(res.PriceType))
	return c.JSON(http.StatusOK, res)
}

// ListPrices lists the price rows of a product
func ListPrices(c echo.Context) error {
	productID, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}
	rows, err := prices.ListPrices(c.Request().Context(), tenantID(c), productID)
	if err != nil {
		return fail(c, err, "list_prices")
	}
	prometheus.RecordPriceOperation("list")
	return c.JSON(http.StatusOK, rows)
}

// CreatePrice adds a price row to a product
func CreatePrice(c echo.Context) error {
	productID, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}
	var req PriceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	row, err := prices.CreatePrice(c.Request().Context(), tenantID(c), productID, req.input())
	if err != nil {
		return fail(c, err, "create_price")
	}
	prometheus.RecordPriceOperation("create")
	return c.JSON(http.StatusCreated, row)
}

// UpdatePrice replaces the terms of a price row
func UpdatePrice(c echo.Context) error {
	productID, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}
	priceID, err := parseID(c, "priceId")
	if err != nil {
		return fail(c, err, "invalid_price_id")
	}
	var req PriceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	row, err := prices.UpdatePrice(c.Request().Context(), tenantID(c), productID, priceID, req.input())
	if err != nil {
		return fail(c, err, "update_price")
	}
	prometheus.RecordPriceOperation("update")
	return c.JSON(http.StatusOK, row)
}

// DeactivatePrice switches a price row off
func DeactivatePrice(c echo.Context) error {
	productID, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}
	priceID, err := parseID(c, "priceId")
	if err != nil {
		return fail(c, err, "invalid_price_id")
	}
	if err := prices.DeactivatePrice(c.Request().Context(), tenantID(c), productID, priceID); err != nil {
		return fail(c, err, "deactivate_price")
	}
	prometheus.RecordPriceOperation("deactivate")
	return c.NoContent(http.StatusNoContent)
}
