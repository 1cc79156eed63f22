package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/user-service/internal/service"
	"github.com/suteetoe/erpsuite/services/user-service/prometheus"
	"go.uber.org/zap"
)

// Services bundles everything the handlers call into
type Services struct {
	Tenants     *service.TenantService
	Users       *service.UserService
	Roles       *service.RoleService
	Catalog     *service.CatalogService
	UserTenants *service.UserTenantService
	Authorizer  *service.Authorizer
	JWT         *jwtutil.JWTUtil
}

var svc *Services

// InitHandlers wires the handler package to its services
func InitHandlers(s *Services) {
	svc = s
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid %s", name)
	}
	return uint(id), nil
}

func badRequest(c echo.Context, err error) error {
	logger.FromEcho(c).Warn("Failed to parse request", zap.Error(err))
	prometheus.RecordError("invalid_request")
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
}

// fail logs err and writes the mapped error response
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

func tokenTenant(c echo.Context) *uint {
	if id, ok := middleware.TenantID(c); ok {
		return &id
	}
	return nil
}

// authorize checks that the caller holds resource:action in tenantID
func authorize(c echo.Context, tenantID *uint, resource, action string) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return apperror.Forbidden("authentication required")
	}
	allowed, err := svc.Authorizer.HasPermission(c.Request().Context(), userID, tenantID, resource, action)
	if err != nil {
		return err
	}
	prometheus.RecordAuthzDecision(allowed)
	if !allowed {
		return apperror.Forbidden("permission %s:%s required", resource, action)
	}
	return nil
}

// RequirePermission guards a route with a check in the caller's token tenant
func RequirePermission(resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authorize(c, tokenTenant(c), resource, action); err != nil {
				return fail(c, err, "permission_denied")
			}
			return next(c)
		}
	}
}

// RequireTenantPermission guards a route with a check in the tenant named by
// the path parameter param
func RequireTenantPermission(param, resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tenantID, err := parseID(c, param)
			if err != nil {
				return fail(c, err, "invalid_tenant_id")
			}
			if err := authorize(c, &tenantID, resource, action); err != nil {
				return fail(c, err, "permission_denied")
			}
			return next(c)
		}
	}
}

// RequireGlobalPermission guards a route with a check outside any tenant, so
// only GLOBAL grants pass
func RequireGlobalPermission(resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := authorize(c, nil, resource, action); err != nil {
				return fail(c, err, "permission_denied")
			}
			return next(c)
		}
	}
}
