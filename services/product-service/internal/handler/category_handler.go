package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/services/product-service/prometheus"
)

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name string `json:"name"`
}

// ListCategories retrieves all product categories of the caller's tenant
func ListCategories(c echo.Context) error {
	defer prometheus.TrackDBOperation("list_categories")(time.Now())

	categories, err := products.ListCategories(c.Request().Context(), tenantID(c))
	if err != nil {
		return fail(c, err, "list_categories")
	}
	prometheus.RecordCategoryOperation("list")
	return c.JSON(http.StatusOK, categories)
}

// GetCategory retrieves a specific category by ID
func GetCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_category_id")
	}
	category, err := products.GetCategory(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, "get_category")
	}
	prometheus.RecordCategoryOperation("get")
	return c.JSON(http.StatusOK, category)
}

// CreateCategory creates a new category
func CreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	category, err := products.CreateCategory(c.Request().Context(), tenantID(c), req.Name)
	if err != nil {
		return fail(c, err, "create_category")
	}
	prometheus.RecordCategoryOperation("create")
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory renames a category
func UpdateCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_category_id")
	}
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	category, err := products.RenameCategory(c.Request().Context(), tenantID(c), id, req.Name)
	if err != nil {
		return fail(c, err, "update_category")
	}
	prometheus.RecordCategoryOperation("update")
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory deletes an unused category
func DeleteCategory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_category_id")
	}
	if err := products.DeleteCategory(c.Request().Context(), tenantID(c), id); err != nil {
		return fail(c, err, "delete_category")
	}
	prometheus.RecordCategoryOperation("delete")
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}
