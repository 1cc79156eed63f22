package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"github.com/suteetoe/erpsuite/services/user-service/internal/service"
	"github.com/suteetoe/erpsuite/services/user-service/prometheus"
	"go.uber.org/zap"
)

// CreateRole adds a GLOBAL or TENANT role
func CreateRole(c echo.Context) error {
	prometheus.RecordRoleOperation("create_role")
	var req struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		Scope       model.Scope `json:"scope"`
		TenantID    *uint       `json:"tenant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	role, err := svc.Roles.Create(c.Request().Context(), service.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Scope:       req.Scope,
		TenantID:    req.TenantID,
	})
	if err != nil {
		return fail(c, err, "role_create_failed")
	}
	logger.FromEcho(c).Info("Role created", zap.Uint("role_id", role.ID), zap.String("name", role.Name))
	return c.JSON(http.StatusCreated, role)
}

// ListRoles returns global roles plus the roles of ?tenant_id, defaulting to the token tenant
func ListRoles(c echo.Context) error {
	tenantID := tokenTenant(c)
	if c.QueryParam("tenant_id") != "" {
		id, err := queryID(c, "tenant_id")
		if err != nil {
			return fail(c, err, "invalid_tenant_id")
		}
		tenantID = &id
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	roles, err := svc.Roles.List(c.Request().Context(), tenantID)
	if err != nil {
		return fail(c, err, "role_list_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": roles})
}

// GetRole returns a role with its permissions
func GetRole(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_role_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	role, err := svc.Roles.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "role_lookup_failed")
	}
	perms, err := svc.Roles.Permissions(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "role_lookup_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"role": role, "permissions": perms})
}

// UpdateRole renames or re-describes a role
func UpdateRole(c echo.Context) error {
	prometheus.RecordRoleOperation("update_role")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_role_id")
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	role, err := svc.Roles.Update(c.Request().Context(), id, req.Name, req.Description)
	if err != nil {
		return fail(c, err, "role_update_failed")
	}
	return c.JSON(http.StatusOK, role)
}

// DeleteRole removes an unused, non-system role
func DeleteRole(c echo.Context) error {
	prometheus.RecordRoleOperation("delete_role")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_role_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := svc.Roles.Delete(c.Request().Context(), id); err != nil {
		return fail(c, err, "role_delete_failed")
	}
	logger.FromEcho(c).Info("Role deleted", zap.Uint("role_id", id))
	return c.NoContent(http.StatusNoContent)
}

// GrantPermission attaches a permission to a role
func GrantPermission(c echo.Context) error {
	prometheus.RecordRoleOperation("grant")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_role_id")
	}
	var req struct {
		PermissionID uint `json:"permission_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	perm, err := svc.Roles.Permission(c.Request().Context(), req.PermissionID)
	if err != nil {
		return fail(c, err, "grant_failed")
	}
	if perm.Scope == model.ScopeGlobal {
		if err := authorize(c, nil, "permissions", "update"); err != nil {
			return fail(c, err, "permission_denied")
		}
	}

	var grantedBy *uint
	if userID, ok := middleware.UserID(c); ok {
		grantedBy = &userID
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	grant, err := svc.Roles.GrantPermission(c.Request().Context(), id, req.PermissionID, grantedBy)
	if err != nil {
		return fail(c, err, "grant_failed")
	}
	return c.JSON(http.StatusCreated, grant)
}

// RevokePermission detaches a permission from a role
func RevokePermission(c echo.Context) error {
	prometheus.RecordRoleOperation("revoke")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_role_id")
	}
	permID, err := parseID(c, "permission_id")
	if err != nil {
		return fail(c, err, "invalid_permission_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := svc.Roles.RevokePermission(c.Request().Context(), id, permID); err != nil {
		return fail(c, err, "revoke_failed")
	}
	return c.NoContent(http.StatusNoContent)
}
