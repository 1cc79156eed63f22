package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"github.com/suteetoe/erpsuite/services/user-service/internal/service"
	"github.com/suteetoe/erpsuite/services/user-service/prometheus"
	"go.uber.org/zap"
)

func listOptions(c echo.Context) service.ListOptions {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}
	return service.ListOptions{Limit: limit, Offset: offset}
}

// CreateUser creates a user on behalf of an administrator
func CreateUser(c echo.Context) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, err := svc.Users.Create(c.Request().Context(), service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return fail(c, err, "user_create_failed")
	}
	return c.JSON(http.StatusCreated, user)
}

// ListUsers returns users filtered by search text and active flag
func ListUsers(c echo.Context) error {
	filter := service.UserFilter{
		Search:      c.QueryParam("search"),
		ListOptions: listOptions(c),
	}
	if v := c.QueryParam("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, err)
		}
		filter.Active = &active
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	users, total, err := svc.Users.List(c.Request().Context(), filter)
	if err != nil {
		return fail(c, err, "user_list_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": users, "total": total})
}

// GetUser returns one user
func GetUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_user_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := svc.Users.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "user_lookup_failed")
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser applies a partial update
func UpdateUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_user_id")
	}

	var req struct {
		Email      *string `json:"email"`
		FirstName  *string `json:"first_name"`
		LastName   *string `json:"last_name"`
		IsActive   *bool   `json:"is_active"`
		IsVerified *bool   `json:"is_verified"`
		Password   *string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	user, err := svc.Users.Update(c.Request().Context(), id, service.UpdateUserInput{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		IsActive:   req.IsActive,
		IsVerified: req.IsVerified,
		Password:   req.Password,
	})
	if err != nil {
		return fail(c, err, "user_update_failed")
	}
	logger.FromEcho(c).Info("User updated", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, user)
}

// DeleteUser deactivates a user
func DeleteUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_user_id")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	user, err := svc.Users.Deactivate(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "user_deactivate_failed")
	}
	logger.FromEcho(c).Info("User deactivated", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, user)
}

// ListUserTenants returns the user's active assignments with tenant and role
func ListUserTenants(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_user_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	rows, err := svc.UserTenants.GetUserTenants(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "user_tenants_failed")
	}
	primary, err := svc.UserTenants.GetPrimaryTenant(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "user_tenants_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows, "primary_tenant": primary})
}

// SetPrimaryTenant switches the user's primary tenant
func SetPrimaryTenant(c echo.Context) error {
	prometheus.RecordAssignmentOperation("set_primary")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_user_id")
	}

	var req struct {
		TenantID uint `json:"tenant_id"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	// users may switch their own primary tenant
	if self, _ := middleware.UserID(c); self != id {
		if err := authorize(c, &req.TenantID, "users", "update"); err != nil {
			return fail(c, err, "permission_denied")
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	row, err := svc.UserTenants.SetPrimaryTenant(c.Request().Context(), id, req.TenantID)
	if err != nil {
		return fail(c, err, "set_primary_failed")
	}
	return c.JSON(http.StatusOK, row)
}
