package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/customer-service/internal/service"
	"github.com/suteetoe/erpsuite/services/customer-service/prometheus"
	"go.uber.org/zap"
)

var customers *service.CustomerService

// InitHandlers wires the handler package to its service
func InitHandlers(s *service.CustomerService) {
	customers = s
}

// RegisterRoutes mounts the customer API behind JWT auth
func RegisterRoutes(e *echo.Echo, jwt *jwtutil.JWTUtil) {
	api := e.Group("/api/customers", middleware.JWTAuthMiddleware(jwt), requireTenant)
	api.GET("", ListCustomers)
	api.GET("/:id", GetCustomer)
	api.POST("", CreateCustomer)
	api.PUT("/:id", UpdateCustomer)
	api.DELETE("/:id", DeleteCustomer)
}

// CustomerRequest defines the structure for customer creation/update requests
type CustomerRequest struct {
	Code            *string          `json:"code"`
	Name            *string          `json:"name"`
	ContactPerson   *string          `json:"contact_person"`
	Email           *string          `json:"email"`
	Phone           *string          `json:"phone"`
	BillingAddress  *string          `json:"billing_address"`
	ShippingAddress *string          `json:"shipping_address"`
	City            *string          `json:"city"`
	Country         *string          `json:"country"`
	PostalCode      *string          `json:"postal_code"`
	TaxID           *string          `json:"tax_id"`
	PaymentTerms    *string          `json:"payment_terms"`
	Currency        *string          `json:"currency"`
	CreditLimit     *decimal.Decimal `json:"credit_limit"`
	Notes           *string          `json:"notes"`
	IsActive        *bool            `json:"is_active"`
}

func (r CustomerRequest) input() service.CustomerInput {
	return service.CustomerInput{
		Code:            r.Code,
		Name:            r.Name,
		ContactPerson:   r.ContactPerson,
		Email:           r.Email,
		Phone:           r.Phone,
		BillingAddress:  r.BillingAddress,
		ShippingAddress: r.ShippingAddress,
		City:            r.City,
		Country:         r.Country,
		PostalCode:      r.PostalCode,
		TaxID:           r.TaxID,
		PaymentTerms:    r.PaymentTerms,
		Currency:        r.Currency,
		CreditLimit:     r.CreditLimit,
		Notes:           r.Notes,
		IsActive:        r.IsActive,
	}
}

func requireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := middleware.TenantID(c); !ok {
			logger.FromEcho(c).Warn("Missing tenant_id in context")
			prometheus.TenantContextMissingCounter.Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id is required"})
		}
		return next(c)
	}
}

func ids(c echo.Context) (tenantID, userID uint) {
	tenantID, _ = middleware.TenantID(c)
	userID, _ = middleware.UserID(c)
	return tenantID, userID
}

func customerID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid customer id")
	}
	return uint(id), nil
}

func fail(c echo.Context, err error, errorType string) error {
	log := logger.FromEcho(c)
	if apperror.HTTPStatus(err) >= http.StatusInternalServerError {
		log.Error("Customer request failed", zap.String("type", errorType), zap.Error(err))
	} else {
		log.Warn("Customer request rejected", zap.String("type", errorType), zap.Error(err))
	}
	prometheus.RecordError(errorType)
	return apperror.JSON(c, err)
}

// CreateCustomer creates a new customer for the current tenant
func CreateCustomer(c echo.Context) error {
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var req CustomerRequest
	if err := c.Bind(&req); err != nil {
		logger.FromEcho(c).Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	tenantID, userID := ids(c)
	customer, err := customers.Create(c.Request().Context(), tenantID, userID, req.input())
	if err != nil {
		return fail(c, err, "create_customer")
	}
	prometheus.RecordCustomerOperation("create")
	return c.JSON(http.StatusCreated, customer)
}

// GetCustomer returns a customer of the current tenant. Sales order creation
// calls this to check that the customer exists.
func GetCustomer(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	id, err := customerID(c)
	if err != nil {
		return fail(c, err, "invalid_customer_id")
	}
	tenantID, _ := ids(c)
	customer, err := customers.Get(c.Request().Context(), tenantID, id)
	if err != nil {
		return fail(c, err, "get_customer")
	}
	prometheus.RecordCustomerOperation("get")
	return c.JSON(http.StatusOK, customer)
}

// ListCustomers lists the tenant's customers with pagination
func ListCustomers(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	filter := service.CustomerFilter{Search: c.QueryParam("search"), Page: page, Limit: limit}
	if raw := c.QueryParam("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}

	tenantID, _ := ids(c)
	list, total, err := customers.List(c.Request().Context(), tenantID, filter)
	if err != nil {
		return fail(c, err, "list_customers")
	}
	if filter.Search == "" && filter.Active == nil {
		prometheus.UpdateCustomersPerTenant(tenantID, total)
	}
	prometheus.RecordCustomerOperation("list")

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return c.JSON(http.StatusOK, echo.Map{
		"customers": list,
		"pagination": echo.Map{
			"current_page": page,
			"limit":        limit,
			"total":        total,
			"total_pages":  (int(total) + limit - 1) / limit,
		},
	})
}

// UpdateCustomer updates an existing customer of the current tenant
func UpdateCustomer(c echo.Context) error {
	defer prometheus.TrackDBOperation("update")(time.Now())

	id, err := customerID(c)
	if err != nil {
		return fail(c, err, "invalid_customer_id")
	}
	var req CustomerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	tenantID, userID := ids(c)
	customer, err := customers.Update(c.Request().Context(), tenantID, userID, id, req.input())
	if err != nil {
		return fail(c, err, "update_customer")
	}
	prometheus.RecordCustomerOperation("update")
	return c.JSON(http.StatusOK, customer)
}

// DeleteCustomer soft-deletes a customer
func DeleteCustomer(c echo.Context) error {
	defer prometheus.TrackDBOperation("delete")(time.Now())

	id, err := customerID(c)
	if err != nil {
		return fail(c, err, "invalid_customer_id")
	}
	tenantID, _ := ids(c)
	if err := customers.Delete(c.Request().Context(), tenantID, id); err != nil {
		return fail(c, err, "delete_customer")
	}
	prometheus.RecordCustomerOperation("delete")
	return c.JSON(http.StatusOK, echo.Map{"message": "Customer deleted successfully"})
}
