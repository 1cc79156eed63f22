package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/service"
	"github.com/suteetoe/erpsuite/services/sales-service/prometheus"
	"go.uber.org/zap"
)

var (
	orders     *service.OrderService
	quotations *service.QuotationService
)

// InitHandlers wires the handler package to its services
func InitHandlers(o *service.OrderService, q *service.QuotationService) {
	orders = o
	quotations = q
}

// RegisterRoutes mounts the order and quotation APIs behind JWT auth
func RegisterRoutes(e *echo.Echo, jwt *jwtutil.JWTUtil) {
	auth := middleware.JWTAuthMiddleware(jwt)

	orderAPI := e.Group("/api/orders", auth, middleware.RequireTenantContext)
	orderAPI.POST("", CreateOrder)
	orderAPI.GET("", ListOrders)
	orderAPI.GET("/:id", GetOrder)
	orderAPI.POST("/:id/approve", ApproveOrder)
	orderAPI.POST("/:id/ship", ShipOrder)
	orderAPI.POST("/:id/deliver", DeliverOrder)
	orderAPI.POST("/:id/cancel", CancelOrder)

	quotationAPI := e.Group("/api/quotations", auth, middleware.RequireTenantContext)
	quotationAPI.POST("", CreateQuotation)
	quotationAPI.GET("", ListQuotations)
	quotationAPI.GET("/:id", GetQuotation)
	quotationAPI.POST("/:id/convert-to-order", ConvertQuotation)
}

func tenantID(c echo.Context) uint {
	id, _ := middleware.TenantID(c)
	return id
}

func userID(c echo.Context) uint {
	id, _ := middleware.UserID(c)
	return id
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid id")
	}
	return uint(id), nil
}

func badRequest(c echo.Context, err error) error {
	logger.FromEcho(c).Warn("Invalid request body", zap.Error(err))
	prometheus.RecordError("invalid_request")
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
}

func fail(c echo.Context, err error, errorType string) error {
	log := logger.FromEcho(c)
	if apperror.HTTPStatus(err) >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("type", errorType), zap.Error(err))
	} else {
		log.Warn("Request rejected", zap.String("type", errorType), zap.Error(err))
	}
	prometheus.RecordError(errorType)
	return apperror.JSON(c, err)
}
