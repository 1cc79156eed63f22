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

// CreateRoleInput describes a new role
type CreateRoleInput struct {
	Name        string
	Description string
	Scope       model.Scope
	TenantID    *uint
	IsSystem    bool
}

// RoleService manages roles and their permission grants
type RoleService struct {
	db    *gorm.DB
	cache DecisionCache
	now   func() time.Time
}

// NewRoleService creates a role service
func NewRoleService(db *gorm.DB, cache DecisionCache) *RoleService {
	if cache == nil {
		cache = NoopCache()
	}
	return &RoleService{db: db, cache: cache, now: time.Now}
}

// Create adds a role. GLOBAL roles carry no tenant; TENANT roles must.
func (s *RoleService) Create(ctx context.Context, in CreateRoleInput) (*model.Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.Validation("name is required")
	}
	if in.Scope == "" {
		in.Scope = model.ScopeTenant
	}
	if !in.Scope.Valid() {
		return nil, apperror.Validation("invalid scope %q", in.Scope)
	}
	if in.Scope == model.ScopeTenant && in.TenantID == nil {
		return nil, apperror.Validation("tenant_id is required for TENANT roles")
	}
	if in.Scope == model.ScopeGlobal {
		in.TenantID = nil
	}

	role := &model.Role{
		Name:        in.Name,
		Description: in.Description,
		Scope:       in.Scope,
		TenantID:    in.TenantID,
		IsSystem:    in.IsSystem,
	}
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)
		if in.TenantID != nil {
			var tenant model.Tenant
			if err := db.First(&tenant, *in.TenantID).Error; err != nil {
				return lookupError(err, "tenant", *in.TenantID)
			}
		} else {
			// NULL tenant ids never collide in the unique index
			var n int64
			if err := db.Model(&model.Role{}).Where("name = ? AND tenant_id IS NULL", in.Name).Count(&n).Error; err != nil {
				return apperror.Internal(err, "failed to check role name")
			}
			if n > 0 {
				return apperror.Conflict("role %s already exists", in.Name)
			}
		}
		if err := db.Create(role).Error; err != nil {
			return writeError(err, "role "+in.Name+" already exists in this tenant", "role")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// Get returns one role
func (s *RoleService) Get(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := database.FromContext(ctx, s.db).First(&role, id).Error; err != nil {
		return nil, lookupError(err, "role", id)
	}
	return &role, nil
}

// List returns global roles plus those of tenantID when given
func (s *RoleService) List(ctx context.Context, tenantID *uint) ([]model.Role, error) {
	q := database.FromContext(ctx, s.db).Model(&model.Role{})
	if tenantID != nil {
		q = q.Where("tenant_id IS NULL OR tenant_id = ?", *tenantID)
	}
	roles := []model.Role{}
	if err := q.Order("id").Find(&roles).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list roles")
	}
	return roles, nil
}

// Update renames or re-describes a role. System roles are read-only.
func (s *RoleService) Update(ctx context.Context, id uint, name, description *string) (*model.Role, error) {
	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, apperror.Forbidden("system role %s cannot be modified", role.Name)
	}

	updates := map[string]interface{}{}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperror.Validation("name must not be empty")
		}
		updates["name"] = strings.TrimSpace(*name)
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return role, nil
	}
	if err := database.FromContext(ctx, s.db).Model(role).Updates(updates).Error; err != nil {
		return nil, writeError(err, "role name already exists in this tenant", "role")
	}
	return s.Get(ctx, id)
}

// Delete removes a role with its grants. System roles and roles still
// assigned to users cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, id uint) error {
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)
		var role model.Role
		if err := db.First(&role, id).Error; err != nil {
			return lookupError(err, "role", id)
		}
		if role.IsSystem {
			return apperror.Forbidden("system role %s cannot be deleted", role.Name)
		}

		var assigned int64
		if err := db.Model(&model.UserTenant{}).Where("role_id = ?", id).Count(&assigned).Error; err != nil && !database.IsMissingRelation(err) {
			return apperror.Internal(err, "failed to check role usage")
		}
		if assigned > 0 {
			return apperror.Conflict("role %s is assigned to %d users", role.Name, assigned)
		}

		if err := db.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
			return apperror.Internal(err, "failed to delete role grants")
		}
		if err := db.Delete(&role).Error; err != nil {
			return apperror.Internal(err, "failed to delete role")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// GrantPermission attaches permissionID to roleID; granting twice is a no-op
func (s *RoleService) GrantPermission(ctx context.Context, roleID, permissionID uint, grantedBy *uint) (*model.RolePermission, error) {
	var grant model.RolePermission
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)
		var role model.Role
		if err := db.First(&role, roleID).Error; err != nil {
			return lookupError(err, "role", roleID)
		}
		var perm model.Permission
		if err := db.First(&perm, permissionID).Error; err != nil {
			return lookupError(err, "permission", permissionID)
		}
		if perm.TenantID != nil && role.TenantID != nil && *perm.TenantID != *role.TenantID {
			return apperror.Validation("permission %d belongs to another tenant", permissionID)
		}

		res := db.Where("role_id = ? AND permission_id = ?", roleID, permissionID).Limit(1).Find(&grant)
		if res.Error != nil {
			return apperror.Internal(res.Error, "failed to load grant")
		}
		if grant.ID != 0 {
			return nil
		}

		grant = model.RolePermission{
			RoleID:       roleID,
			PermissionID: permissionID,
			GrantedAt:    s.now(),
			GrantedBy:    grantedBy,
		}
		if err := db.Create(&grant).Error; err != nil {
			return writeError(err, "permission already granted", "grant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAll(ctx)
	logger.FromContext(ctx).Info("Permission granted",
		zap.Uint("role_id", roleID),
		zap.Uint("permission_id", permissionID))
	return &grant, nil
}

// RevokePermission detaches permissionID from roleID
func (s *RoleService) RevokePermission(ctx context.Context, roleID, permissionID uint) error {
	res := database.FromContext(ctx, s.db).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&model.RolePermission{})
	if res.Error != nil {
		return apperror.Internal(res.Error, "failed to revoke permission")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("role %d does not hold permission %d", roleID, permissionID)
	}
	s.invalidateAll(ctx)
	return nil
}

// Permissions lists the permissions granted to roleID
func (s *RoleService) Permissions(ctx context.Context, roleID uint) ([]model.Permission, error) {
	perms := []model.Permission{}
	err := database.FromContext(ctx, s.db).
		Preload("Resource").Preload("Action").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id").
		Find(&perms).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to load role permissions")
	}
	return perms, nil
}

// GrantsGlobal reports whether roleID carries any GLOBAL-scope permission.
// Such a role applies in every tenant, whichever tenant it is assigned in.
func (s *RoleService) GrantsGlobal(ctx context.Context, roleID uint) (bool, error) {
	var n int64
	err := database.FromContext(ctx, s.db).Model(&model.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ? AND permissions.scope = ?", roleID, model.ScopeGlobal).
		Count(&n).Error
	if err != nil {
		return false, apperror.Internal(err, "failed to load role permissions")
	}
	return n > 0, nil
}

// Permission returns one permission
func (s *RoleService) Permission(ctx context.Context, id uint) (*model.Permission, error) {
	var perm model.Permission
	if err := database.FromContext(ctx, s.db).First(&perm, id).Error; err != nil {
		return nil, lookupError(err, "permission", id)
	}
	return &perm, nil
}

func (s *RoleService) invalidateAll(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		logger.FromContext(ctx).Warn("Failed to invalidate permission cache", zap.Error(err))
	}
}
