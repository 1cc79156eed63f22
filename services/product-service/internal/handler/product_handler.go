package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/product-service/internal/service"
	"github.com/suteetoe/erpsuite/services/product-service/prometheus"
	"go.uber.org/zap"
)

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	SKU         *string `json:"sku"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Unit        *string `json:"unit"`
	Stock       *int    `json:"stock"`
	CategoryID  *uint   `json:"category_id"`
	IsActive    *bool   `json:"is_active"`
}

func (r ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Description,
		Unit:        r.Unit,
		Stock:       r.Stock,
		CategoryID:  r.CategoryID,
		IsActive:    r.IsActive,
	}
}

// ListProducts handles retrieving the tenant's products with optional filtering
func ListProducts(c echo.Context) error {
	defer prometheus.TrackDBOperation("list_products")(time.Now())

	filter := service.ProductFilter{Search: c.QueryParam("search")}
	if active, err := strconv.ParseBool(c.QueryParam("is_active")); err == nil && active {
		filter.ActiveOnly = true
	}
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return badRequest(c, err)
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}

	list, err := products.List(c.Request().Context(), tenantID(c), filter)
	if err != nil {
		return fail(c, err, "list_products")
	}
	prometheus.RecordProductOperation("list")
	return c.JSON(http.StatusOK, list)
}

// GetProduct retrieves a specific product by ID
func GetProduct(c echo.Context) error {
	defer prometheus.TrackDBOperation("get_product")(time.Now())

	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}
	product, err := products.Get(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, "get_product")
	}
	prometheus.RecordProductOperation("get")
	return c.JSON(http.StatusOK, product)
}

// CreateProduct creates a new product in the caller's tenant
func CreateProduct(c echo.Context) error {
	defer prometheus.TrackDBOperation("create_product")(time.Now())

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	product, err := products.Create(c.Request().Context(), tenantID(c), req.input())
	if err != nil {
		return fail(c, err, "create_product")
	}

	logger.FromEcho(c).Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("sku", product.SKU))
	prometheus.RecordProductOperation("create")
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates an existing product
func UpdateProduct(c echo.Context) error {
	defer prometheus.TrackDBOperation("update_product")(time.Now())

	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	product, err := products.Update(c.Request().Context(), tenantID(c), id, req.input())
	if err != nil {
		return fail(c, err, "update_product")
	}
	prometheus.RecordProductOperation("update")
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct soft-deletes a product
func DeleteProduct(c echo.Context) error {
	defer prometheus.TrackDBOperation("delete_product")(time.Now())

	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_product_id")
	}
	if err := products.Delete(c.Request().Context(), tenantID(c), id); err != nil {
		return fail(c, err, "delete_product")
	}
	prometheus.RecordProductOperation("delete")
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}
