package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"github.com/suteetoe/erpsuite/services/user-service/internal/service"
	"github.com/suteetoe/erpsuite/services/user-service/prometheus"
)

type catalogRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func queryID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.QueryParam(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// CreateResource adds a catalog resource
func CreateResource(c echo.Context) error {
	prometheus.RecordRoleOperation("create_resource")
	var req catalogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	r, err := svc.Catalog.CreateResource(c.Request().Context(), req.Code, req.Name, req.Description)
	if err != nil {
		return fail(c, err, "resource_create_failed")
	}
	return c.JSON(http.StatusCreated, r)
}

// ListResources returns the resource catalog
func ListResources(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	out, err := svc.Catalog.ListResources(c.Request().Context())
	if err != nil {
		return fail(c, err, "resource_list_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// CreateAction adds a catalog action
func CreateAction(c echo.Context) error {
	prometheus.RecordRoleOperation("create_action")
	var req catalogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	a, err := svc.Catalog.CreateAction(c.Request().Context(), req.Code, req.Name, req.Description)
	if err != nil {
		return fail(c, err, "action_create_failed")
	}
	return c.JSON(http.StatusCreated, a)
}

// ListActions returns the action catalog
func ListActions(c echo.Context) error {
	defer prometheus.TrackDBOperation("query")(time.Now())
	out, err := svc.Catalog.ListActions(c.Request().Context())
	if err != nil {
		return fail(c, err, "action_list_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// CreatePermission registers a resource/action pair
func CreatePermission(c echo.Context) error {
	prometheus.RecordRoleOperation("create_permission")
	var req struct {
		Resource    string      `json:"resource"`
		Action      string      `json:"action"`
		Scope       model.Scope `json:"scope"`
		TenantID    *uint       `json:"tenant_id"`
		Description string      `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	defer prometheus.TrackDBOperation("insert")(time.Now())
	perm, err := svc.Catalog.CreatePermission(c.Request().Context(), service.CreatePermissionInput{
		Resource:    req.Resource,
		Action:      req.Action,
		Scope:       req.Scope,
		TenantID:    req.TenantID,
		Description: req.Description,
	})
	if err != nil {
		return fail(c, err, "permission_create_failed")
	}
	return c.JSON(http.StatusCreated, perm)
}

// ListPermissions returns permissions filtered by resource, scope and tenant
func ListPermissions(c echo.Context) error {
	filter := service.PermissionFilter{
		Resource: c.QueryParam("resource"),
		Scope:    model.Scope(c.QueryParam("scope")),
	}
	if c.QueryParam("tenant_id") != "" {
		id, err := queryID(c, "tenant_id")
		if err != nil {
			return fail(c, err, "invalid_tenant_id")
		}
		filter.TenantID = &id
	}
	defer prometheus.TrackDBOperation("query")(time.Now())
	perms, err := svc.Catalog.ListPermissions(c.Request().Context(), filter)
	if err != nil {
		return fail(c, err, "permission_list_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": perms})
}
