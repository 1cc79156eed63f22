package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/report"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/service"
	"github.com/suteetoe/erpsuite/services/financial-service/prometheus"
	"go.uber.org/zap"
)

var (
	invoices *service.InvoiceService
	reports  *report.Service
)

// InitHandlers wires the handler package to its services
func InitHandlers(i *service.InvoiceService, r *report.Service) {
	invoices = i
	reports = r
}

// RegisterRoutes mounts the invoice and report APIs behind JWT auth
func RegisterRoutes(e *echo.Echo, jwt *jwtutil.JWTUtil) {
	auth := middleware.JWTAuthMiddleware(jwt)

	invoiceAPI := e.Group("/api/invoices", auth, middleware.RequireTenantContext)
	invoiceAPI.POST("", CreateInvoice)
	invoiceAPI.GET("", ListInvoices)
	invoiceAPI.GET("/:id", GetInvoice)
	invoiceAPI.POST("/:id/send", SendInvoice)
	invoiceAPI.POST("/:id/pay", PayInvoice)
	invoiceAPI.POST("/:id/cancel", CancelInvoice)
	invoiceAPI.GET("/:id/payments", ListPayments)

	reportAPI := e.Group("/api/reports", auth, middleware.RequireTenantContext)
	reportAPI.GET("/sales-overview", SalesOverview)
	reportAPI.GET("/invoice-summary", InvoiceSummary)
}

func tenantID(c echo.Context) uint {
	id, _ := middleware.TenantID(c)
	return id
}

func userID(c echo.Context) *uint {
	id, ok := middleware.UserID(c)
	if !ok {
		return nil
	}
	return &id
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid invoice id")
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
