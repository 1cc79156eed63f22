package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/product-service/internal/service"
	"github.com/suteetoe/erpsuite/services/product-service/prometheus"
	"go.uber.org/zap"
)

var (
	products *service.ProductService
	prices   *service.PriceService
)

// InitHandlers wires the handler package to its services
func InitHandlers(p *service.ProductService, pr *service.PriceService) {
	products = p
	prices = pr
}

// RequireTenant rejects tokens without tenant context and counts them
func RequireTenant(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := middleware.TenantID(c); !ok {
			prometheus.RecordTenantContextMissing()
			logger.FromEcho(c).Warn("Missing tenant_id in token")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id is required in the token"})
		}
		return next(c)
	}
}

func tenantID(c echo.Context) uint {
	id, _ := middleware.TenantID(c)
	return id
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid %s", name)
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
