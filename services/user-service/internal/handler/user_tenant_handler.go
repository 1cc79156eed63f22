package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/user-service/prometheus"
	"go.uber.org/zap"
)

// AssignUserToTenant grants a role to a user inside a tenant
func AssignUserToTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordAssignmentOperation("assign")

	var req struct {
		UserID    uint `json:"user_id"`
		TenantID  uint `json:"tenant_id"`
		RoleID    uint `json:"role_id"`
		IsPrimary bool `json:"is_primary"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if err := authorize(c, &req.TenantID, "users", "update"); err != nil {
		return fail(c, err, "permission_denied")
	}
	global, err := svc.Roles.GrantsGlobal(c.Request().Context(), req.RoleID)
	if err != nil {
		return fail(c, err, "assignment_failed")
	}
	if global {
		// a role with GLOBAL grants reaches beyond the tenant it is assigned in
		if err := authorize(c, nil, "users", "update"); err != nil {
			return fail(c, err, "permission_denied")
		}
	}

	var invitedBy *uint
	if userID, ok := middleware.UserID(c); ok {
		invitedBy = &userID
	}

	defer prometheus.TrackDBOperation("upsert")(time.Now())
	row, err := svc.UserTenants.AssignUserToTenant(c.Request().Context(), req.UserID, req.TenantID, req.RoleID, req.IsPrimary, invitedBy)
	if err != nil {
		prometheus.RecordTenantError(req.TenantID, "assignment_failed")
		return fail(c, err, "assignment_failed")
	}

	log.Info("User assigned to tenant",
		zap.Uint("user_id", req.UserID),
		zap.Uint("tenant_id", req.TenantID),
		zap.Uint("role_id", req.RoleID))
	return c.JSON(http.StatusOK, row)
}

// RemoveRoleFromUserTenant deletes one (user, tenant, role) assignment
func RemoveRoleFromUserTenant(c echo.Context) error {
	prometheus.RecordAssignmentOperation("remove_role")
	userID, err := parseID(c, "user_id")
	if err != nil {
		return fail(c, err, "invalid_user_id")
	}
	tenantID, err := parseID(c, "tenant_id")
	if err != nil {
		return fail(c, err, "invalid_tenant_id")
	}
	roleID, err := parseID(c, "role_id")
	if err != nil {
		return fail(c, err, "invalid_role_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	removed, err := svc.UserTenants.RemoveRoleFromUserTenant(c.Request().Context(), userID, tenantID, roleID)
	if err != nil {
		return fail(c, err, "remove_role_failed")
	}
	if !removed {
		return fail(c, apperror.NotFound("assignment not found"), "assignment_not_found")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeactivateUserTenant soft-deactivates all roles of a user in a tenant
func DeactivateUserTenant(c echo.Context) error {
	prometheus.RecordAssignmentOperation("deactivate")
	userID, err := parseID(c, "user_id")
	if err != nil {
		return fail(c, err, "invalid_user_id")
	}
	tenantID, err := parseID(c, "tenant_id")
	if err != nil {
		return fail(c, err, "invalid_tenant_id")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	n, err := svc.UserTenants.DeactivateUserTenant(c.Request().Context(), userID, tenantID)
	if err != nil {
		return fail(c, err, "deactivate_assignment_failed")
	}
	if n == 0 {
		return fail(c, apperror.NotFound("assignment not found"), "assignment_not_found")
	}
	return c.JSON(http.StatusOK, echo.Map{"deactivated": n})
}
