package service

import (
	"context"
	"strings"
	"time"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Catalog entries seeded by the migrate command
var (
	DefaultResources = []string{
		"tenants", "users", "roles", "permissions", "orders",
		"quotations", "invoices", "reports", "products", "customers",
	}
	DefaultActions = []string{"create", "read", "update", "delete", "approve", "send", "pay"}
)

// CreatePermissionInput references catalog entries by code
type CreatePermissionInput struct {
	Resource    string
	Action      string
	Scope       model.Scope
	TenantID    *uint
	Description string
}

// PermissionFilter narrows ListPermissions
type PermissionFilter struct {
	Resource string
	Scope    model.Scope
	TenantID *uint
}

// CatalogService manages resources, actions and permissions
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a catalog service
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// CreateResource adds a resource to the catalog
func (s *CatalogService) CreateResource(ctx context.Context, code, name, description string) (*model.Resource, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, apperror.Validation("code is required")
	}
	if name == "" {
		name = code
	}
	r := &model.Resource{Code: code, Name: name, Description: description}
	if err := database.FromContext(ctx, s.db).Create(r).Error; err != nil {
		return nil, writeError(err, "resource "+code+" already exists", "resource")
	}
	return r, nil
}

// ListResources returns the resource catalog
func (s *CatalogService) ListResources(ctx context.Context) ([]model.Resource, error) {
	out := []model.Resource{}
	if err := database.FromContext(ctx, s.db).Order("code").Find(&out).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list resources")
	}
	return out, nil
}

// CreateAction adds an action to the catalog
func (s *CatalogService) CreateAction(ctx context.Context, code, name, description string) (*model.Action, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, apperror.Validation("code is required")
	}
	if name == "" {
		name = code
	}
	a := &model.Action{Code: code, Name: name, Description: description}
	if err := database.FromContext(ctx, s.db).Create(a).Error; err != nil {
		return nil, writeError(err, "action "+code+" already exists", "action")
	}
	return a, nil
}

// ListActions returns the action catalog
func (s *CatalogService) ListActions(ctx context.Context) ([]model.Action, error) {
	out := []model.Action{}
	if err := database.FromContext(ctx, s.db).Order("code").Find(&out).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list actions")
	}
	return out, nil
}

// CreatePermission registers a (resource, action) pair. Tenant-pinned
// permissions must be TENANT scoped.
func (s *CatalogService) CreatePermission(ctx context.Context, in CreatePermissionInput) (*model.Permission, error) {
	if in.Scope == "" {
		in.Scope = model.ScopeTenant
	}
	if !in.Scope.Valid() {
		return nil, apperror.Validation("invalid scope %q", in.Scope)
	}
	if in.Scope == model.ScopeGlobal && in.TenantID != nil {
		return nil, apperror.Validation("GLOBAL permissions cannot be pinned to a tenant")
	}

	var perm *model.Permission
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		perm, err = s.ensurePermission(ctx, in, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return perm, nil
}

// ensurePermission creates the permission, or returns the existing one when
// reuse is set. Uniqueness of tenant-less rows is checked here because NULL
// tenant ids never collide in the unique index.
func (s *CatalogService) ensurePermission(ctx context.Context, in CreatePermissionInput, reuse bool) (*model.Permission, error) {
	db := database.FromContext(ctx, s.db)

	var resource model.Resource
	if err := db.Where("code = ?", normalizeCode(in.Resource)).First(&resource).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.Validation("unknown resource %q", in.Resource)
		}
		return nil, apperror.Internal(err, "failed to load resource")
	}
	var action model.Action
	if err := db.Where("code = ?", normalizeCode(in.Action)).First(&action).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.Validation("unknown action %q", in.Action)
		}
		return nil, apperror.Internal(err, "failed to load action")
	}

	q := db.Where("resource_id = ? AND action_id = ? AND scope = ?", resource.ID, action.ID, in.Scope)
	if in.TenantID == nil {
		q = q.Where("tenant_id IS NULL")
	} else {
		q = q.Where("tenant_id = ?", *in.TenantID)
	}
	var existing model.Permission
	if err := q.Limit(1).Find(&existing).Error; err != nil {
		return nil, apperror.Internal(err, "failed to check permission")
	}
	if existing.ID != 0 {
		if reuse {
			existing.Resource, existing.Action = &resource, &action
			return &existing, nil
		}
		return nil, apperror.Conflict("permission %s:%s already exists", resource.Code, action.Code)
	}

	perm := &model.Permission{
		ResourceID:  resource.ID,
		ActionID:    action.ID,
		TenantID:    in.TenantID,
		Scope:       in.Scope,
		Description: in.Description,
	}
	if err := db.Create(perm).Error; err != nil {
		return nil, writeError(err, "permission "+resource.Code+":"+action.Code+" already exists", "permission")
	}
	perm.Resource, perm.Action = &resource, &action
	return perm, nil
}

// ListPermissions returns permissions with their catalog entries
func (s *CatalogService) ListPermissions(ctx context.Context, filter PermissionFilter) ([]model.Permission, error) {
	q := database.FromContext(ctx, s.db).Preload("Resource").Preload("Action")
	if filter.Resource != "" {
		q = q.Joins("JOIN cat_resources ON cat_resources.id = permissions.resource_id").
			Where("cat_resources.code = ?", normalizeCode(filter.Resource))
	}
	if filter.Scope != "" {
		q = q.Where("permissions.scope = ?", filter.Scope)
	}
	if filter.TenantID != nil {
		q = q.Where("permissions.tenant_id IS NULL OR permissions.tenant_id = ?", *filter.TenantID)
	}
	perms := []model.Permission{}
	if err := q.Order("permissions.id").Find(&perms).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list permissions")
	}
	return perms, nil
}

// Seed creates the default catalog and the system roles. It is idempotent.
//
//	SUPER_ADMIN   GLOBAL permission on every resource and action
//	TENANT_ADMIN  TENANT permission on every resource and action
//	MEMBER        TENANT read permission on every resource
func (s *CatalogService) Seed(ctx context.Context) error {
	return database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)

		for _, code := range DefaultResources {
			r := model.Resource{Code: code, Name: strings.ToUpper(code[:1]) + code[1:]}
			if err := db.Where("code = ?", code).FirstOrCreate(&r).Error; err != nil {
				return apperror.Internal(err, "failed to seed resource %s", code)
			}
		}
		for _, code := range DefaultActions {
			a := model.Action{Code: code, Name: strings.ToUpper(code[:1]) + code[1:]}
			if err := db.Where("code = ?", code).FirstOrCreate(&a).Error; err != nil {
				return apperror.Internal(err, "failed to seed action %s", code)
			}
		}

		roles := map[string]*model.Role{}
		for _, name := range []string{model.RoleSuperAdmin, model.RoleTenantAdmin, model.RoleMember} {
			role := model.Role{Name: name, Scope: model.ScopeGlobal, IsSystem: true, Description: "built-in " + strings.ToLower(name) + " role"}
			if err := db.Where("name = ? AND tenant_id IS NULL", name).FirstOrCreate(&role).Error; err != nil {
				return apperror.Internal(err, "failed to seed role %s", name)
			}
			roles[name] = &role
		}

		grant := func(role *model.Role, perm *model.Permission) error {
			rp := model.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
			return db.Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
				Attrs(model.RolePermission{GrantedAt: time.Now().UTC()}).
				FirstOrCreate(&rp).Error
		}

		for _, resource := range DefaultResources {
			for _, action := range DefaultActions {
				global, err := s.ensurePermission(ctx, CreatePermissionInput{Resource: resource, Action: action, Scope: model.ScopeGlobal}, true)
				if err != nil {
					return err
				}
				if err := grant(roles[model.RoleSuperAdmin], global); err != nil {
					return apperror.Internal(err, "failed to seed grant")
				}

				tenant, err := s.ensurePermission(ctx, CreatePermissionInput{Resource: resource, Action: action, Scope: model.ScopeTenant}, true)
				if err != nil {
					return err
				}
				if err := grant(roles[model.RoleTenantAdmin], tenant); err != nil {
					return apperror.Internal(err, "failed to seed grant")
				}
				if action == "read" {
					if err := grant(roles[model.RoleMember], tenant); err != nil {
						return apperror.Internal(err, "failed to seed grant")
					}
				}
			}
		}

		logger.FromContext(ctx).Info("Catalog seeded",
			zap.Int("resources", len(DefaultResources)),
			zap.Int("actions", len(DefaultActions)))
		return nil
	})
}
