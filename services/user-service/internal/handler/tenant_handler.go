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

type tenantRequest struct {
	Code                  string                  `json:"code"`
	Name                  *string                 `json:"name"`
	DisplayName           *string                 `json:"display_name"`
	TaxCode               *string                 `json:"tax_code"`
	Status                *model.TenantStatus     `json:"status"`
	SubscriptionTier      *model.SubscriptionTier `json:"subscription_tier"`
	SubscriptionExpiresAt *time.Time              `json:"subscription_expires_at"`
	MaxUsers              *int                    `json:"max_users"`
	MaxStorageMB          *int                    `json:"max_storage_mb"`
	Settings              map[string]interface{}  `json:"settings"`
	OwnerUserID           *uint                   `json:"owner_user_id"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CreateTenant onboards a tenant, optionally with its first administrator
func CreateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("onboard")

	var req tenantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	in := service.OnboardTenantInput{
		Code:                  req.Code,
		Name:                  deref(req.Name),
		DisplayName:           deref(req.DisplayName),
		TaxCode:               req.TaxCode,
		SubscriptionTier:      deref(req.SubscriptionTier),
		SubscriptionExpiresAt: req.SubscriptionExpiresAt,
		MaxUsers:              deref(req.MaxUsers),
		MaxStorageMB:          deref(req.MaxStorageMB),
		Settings:              req.Settings,
		OwnerUserID:           req.OwnerUserID,
	}
	if userID, ok := middleware.UserID(c); ok {
		in.CreatedBy = &userID
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	tenant, err := svc.Tenants.Onboard(c.Request().Context(), in)
	if err != nil {
		return fail(c, err, "tenant_onboard_failed")
	}

	log.Info("Tenant created", zap.Uint("tenant_id", tenant.ID), zap.String("code", tenant.Code))
	return c.JSON(http.StatusCreated, tenant)
}

// ListTenants returns tenants filtered by status and search text
func ListTenants(c echo.Context) error {
	prometheus.RecordTenantOperation("list")
	filter := service.TenantFilter{
		Status:      model.TenantStatus(c.QueryParam("status")),
		Search:      c.QueryParam("search"),
		ListOptions: listOptions(c),
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenants, total, err := svc.Tenants.List(c.Request().Context(), filter)
	if err != nil {
		return fail(c, err, "tenant_list_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": tenants, "total": total})
}

// GetTenant retrieves tenant details
func GetTenant(c echo.Context) error {
	prometheus.RecordTenantOperation("access")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_tenant_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	tenant, err := svc.Tenants.Get(c.Request().Context(), id)
	if err != nil {
		prometheus.RecordTenantError(id, "tenant_not_found")
		return fail(c, err, "tenant_lookup_failed")
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateTenant applies a partial update
func UpdateTenant(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("update")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_tenant_id")
	}

	var req tenantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	tenant, err := svc.Tenants.Update(c.Request().Context(), id, service.UpdateTenantInput{
		Name:                  req.Name,
		DisplayName:           req.DisplayName,
		TaxCode:               req.TaxCode,
		Status:                req.Status,
		SubscriptionTier:      req.SubscriptionTier,
		SubscriptionExpiresAt: req.SubscriptionExpiresAt,
		MaxUsers:              req.MaxUsers,
		MaxStorageMB:          req.MaxStorageMB,
		Settings:              req.Settings,
	})
	if err != nil {
		prometheus.RecordTenantError(id, "tenant_update_failed")
		return fail(c, err, "tenant_update_failed")
	}

	log.Info("Tenant updated", zap.Uint("tenant_id", id))
	return c.JSON(http.StatusOK, tenant)
}

// SuspendTenant moves a tenant to SUSPENDED
func SuspendTenant(c echo.Context) error {
	prometheus.RecordTenantOperation("suspend")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_tenant_id")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	tenant, err := svc.Tenants.Suspend(c.Request().Context(), id)
	if err != nil {
		prometheus.RecordTenantError(id, "tenant_suspend_failed")
		return fail(c, err, "tenant_suspend_failed")
	}
	logger.FromEcho(c).Info("Tenant suspended", zap.Uint("tenant_id", id))
	return c.JSON(http.StatusOK, tenant)
}

// DeleteTenant soft-deletes a tenant by moving it to INACTIVE
func DeleteTenant(c echo.Context) error {
	prometheus.RecordTenantOperation("deactivate")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_tenant_id")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	tenant, err := svc.Tenants.Deactivate(c.Request().Context(), id)
	if err != nil {
		prometheus.RecordTenantError(id, "tenant_deactivate_failed")
		return fail(c, err, "tenant_deactivate_failed")
	}
	logger.FromEcho(c).Info("Tenant deactivated", zap.Uint("tenant_id", id))
	return c.JSON(http.StatusOK, tenant)
}

// ListTenantUsers returns the tenant's active assignments
func ListTenantUsers(c echo.Context) error {
	prometheus.RecordTenantOperation("list_users")
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err, "invalid_tenant_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	rows, err := svc.UserTenants.GetTenantUsers(c.Request().Context(), id)
	if err != nil {
		return fail(c, err, "tenant_users_failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
