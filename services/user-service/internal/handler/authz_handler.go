package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/user-service/prometheus"
)

// CheckPermission answers whether a user may perform action on resource.
// The user defaults to the caller and the tenant to the token tenant. Asking
// about another user needs users:read in that tenant.
func CheckPermission(c echo.Context) error {
	var req struct {
		UserID   *uint  `json:"user_id"`
		TenantID *uint  `json:"tenant_id"`
		Resource string `json:"resource"`
		Action   string `json:"action"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	caller, ok := middleware.UserID(c)
	if !ok {
		return fail(c, apperror.Forbidden("authentication required"), "unauthorized")
	}
	userID := caller
	if req.UserID != nil {
		userID = *req.UserID
	}
	tenantID := req.TenantID
	if tenantID == nil {
		tenantID = tokenTenant(c)
	}
	if userID != caller {
		if err := authorize(c, tenantID, "users", "read"); err != nil {
			return fail(c, err, "permission_denied")
		}
	}

	defer prometheus.TrackDBOperation("authz_check")(time.Now())
	allowed, err := svc.Authorizer.HasPermission(c.Request().Context(), userID, tenantID, req.Resource, req.Action)
	if err != nil {
		return fail(c, err, "authz_check_failed")
	}
	prometheus.RecordAuthzDecision(allowed)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":   userID,
		"tenant_id": tenantID,
		"resource":  req.Resource,
		"action":    req.Action,
		"allowed":   allowed,
	})
}

// EffectivePermissions lists the caller's resource:action pairs in the token tenant
func EffectivePermissions(c echo.Context) error {
	caller, ok := middleware.UserID(c)
	if !ok {
		return fail(c, apperror.Forbidden("authentication required"), "unauthorized")
	}
	tenantID := tokenTenant(c)
	if c.QueryParam("tenant_id") != "" {
		id, err := queryID(c, "tenant_id")
		if err != nil {
			return fail(c, err, "invalid_tenant_id")
		}
		tenantID = &id
	}

	defer prometheus.TrackDBOperation("authz_list")(time.Now())
	perms, err := svc.Authorizer.EffectivePermissions(c.Request().Context(), caller, tenantID)
	if err != nil {
		return fail(c, err, "authz_list_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"tenant_id": tenantID, "permissions": perms})
}
