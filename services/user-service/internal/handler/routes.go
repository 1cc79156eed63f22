package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
)

// RegisterRoutes mounts the public and the JWT protected API routes
func RegisterRoutes(e *echo.Echo) {
	auth := e.Group("/auth")
	auth.POST("/register", Register)
	auth.POST("/login", Login)

	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(svc.JWT))

	tenants := api.Group("/tenants")
	tenants.POST("", CreateTenant, RequireGlobalPermission("tenants", "create"))
	tenants.GET("", ListTenants, RequireGlobalPermission("tenants", "read"))
	tenants.GET("/:id", GetTenant, RequireTenantPermission("id", "tenants", "read"))
	tenants.PUT("/:id", UpdateTenant, RequireTenantPermission("id", "tenants", "update"))
	tenants.POST("/:id/suspend", SuspendTenant, RequireGlobalPermission("tenants", "update"))
	tenants.DELETE("/:id", DeleteTenant, RequireGlobalPermission("tenants", "delete"))
	tenants.GET("/:id/users", ListTenantUsers, RequireTenantPermission("id", "users", "read"))

	users := api.Group("/users")
	users.POST("", CreateUser, RequirePermission("users", "create"))
	users.GET("", ListUsers, RequireGlobalPermission("users", "read"))
	users.GET("/:id", GetUser, RequirePermission("users", "read"))
	users.PUT("/:id", UpdateUser, RequireGlobalPermission("users", "update"))
	users.DELETE("/:id", DeleteUser, RequireGlobalPermission("users", "delete"))
	users.GET("/:id/tenants", ListUserTenants, RequirePermission("users", "read"))
	users.PUT("/:id/primary-tenant", SetPrimaryTenant)

	roles := api.Group("/roles")
	roles.POST("", CreateRole, RequirePermission("roles", "create"))
	roles.GET("", ListRoles, RequirePermission("roles", "read"))
	roles.GET("/:id", GetRole, RequirePermission("roles", "read"))
	roles.PUT("/:id", UpdateRole, RequirePermission("roles", "update"))
	roles.DELETE("/:id", DeleteRole, RequirePermission("roles", "delete"))
	roles.POST("/:id/permissions", GrantPermission, RequirePermission("permissions", "update"))
	roles.DELETE("/:id/permissions/:permission_id", RevokePermission, RequirePermission("permissions", "update"))

	perms := api.Group("/permissions")
	perms.POST("", CreatePermission, RequireGlobalPermission("permissions", "create"))
	perms.GET("", ListPermissions, RequirePermission("permissions", "read"))

	catalog := api.Group("/catalog")
	catalog.POST("/resources", CreateResource, RequireGlobalPermission("permissions", "create"))
	catalog.GET("/resources", ListResources, RequirePermission("permissions", "read"))
	catalog.POST("/actions", CreateAction, RequireGlobalPermission("permissions", "create"))
	catalog.GET("/actions", ListActions, RequirePermission("permissions", "read"))

	userTenants := api.Group("/user-tenants")
	userTenants.POST("", AssignUserToTenant)
	userTenants.DELETE("/:user_id/:tenant_id/:role_id", RemoveRoleFromUserTenant, RequireTenantPermission("tenant_id", "users", "update"))
	userTenants.POST("/:user_id/:tenant_id/deactivate", DeactivateUserTenant, RequireTenantPermission("tenant_id", "users", "update"))

	authz := api.Group("/authz")
	authz.POST("/check", CheckPermission)
	authz.GET("/permissions", EffectivePermissions)
}
