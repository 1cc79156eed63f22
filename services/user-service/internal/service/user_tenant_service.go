package service

import (
	"context"
	"time"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserTenantService manages role assignments of users inside tenants
type UserTenantService struct {
	db    *gorm.DB
	cache DecisionCache
	now   func() time.Time
}

// NewUserTenantService creates the assignment service
func NewUserTenantService(db *gorm.DB, cache DecisionCache) *UserTenantService {
	if cache == nil {
		cache = NoopCache()
	}
	return &UserTenantService{db: db, cache: cache, now: time.Now}
}

// AssignUserToTenant grants roleID to userID inside tenantID. Calling it again
// with the same triple updates the existing row instead of inserting. When
// isPrimary is set every other primary flag of the user is cleared first, in
// the same transaction.
func (s *UserTenantService) AssignUserToTenant(ctx context.Context, userID, tenantID, roleID uint, isPrimary bool, invitedBy *uint) (*model.UserTenant, error) {
	if userID == 0 || tenantID == 0 || roleID == 0 {
		return nil, apperror.Validation("user_id, tenant_id and role_id are required")
	}

	var assignment model.UserTenant
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)

		var user model.User
		if err := db.First(&user, userID).Error; err != nil {
			return lookupError(err, "user", userID)
		}
		if !user.IsActive {
			return apperror.Validation("user %d is inactive", userID)
		}
		var tenant model.Tenant
		if err := db.First(&tenant, tenantID).Error; err != nil {
			return lookupError(err, "tenant", tenantID)
		}
		if tenant.Status == model.TenantStatusInactive {
			return apperror.Conflict("tenant %d is inactive", tenantID)
		}
		var role model.Role
		if err := db.First(&role, roleID).Error; err != nil {
			return lookupError(err, "role", roleID)
		}
		if role.Scope == model.ScopeTenant && (role.TenantID == nil || *role.TenantID != tenantID) {
			return apperror.Validation("role %d does not belong to tenant %d", roleID, tenantID)
		}

		res := db.Where("user_id = ? AND tenant_id = ? AND role_id = ?", userID, tenantID, roleID).
			Limit(1).Find(&assignment)
		if res.Error != nil {
			return requireRelation(res.Error, "assign user to tenant")
		}

		if assignment.ID == 0 {
			if err := s.checkQuota(db, &tenant, userID); err != nil {
				return err
			}
		}

		if isPrimary {
			err := db.Model(&model.UserTenant{}).
				Where("user_id = ? AND is_primary = ? AND id <> ?", userID, true, assignment.ID).
				Update("is_primary", false).Error
			if err != nil {
				return requireRelation(err, "clear primary tenant")
			}
		}

		if assignment.ID != 0 {
			updates := map[string]interface{}{
				"is_primary": isPrimary,
				"is_active":  true,
			}
			if invitedBy != nil {
				updates["invited_by"] = *invitedBy
			}
			if err := db.Model(&assignment).Updates(updates).Error; err != nil {
				return apperror.Internal(err, "failed to update assignment")
			}
			return db.First(&assignment, assignment.ID).Error
		}

		assignment = model.UserTenant{
			UserID:    userID,
			TenantID:  tenantID,
			RoleID:    roleID,
			IsPrimary: isPrimary,
			IsActive:  true,
			InvitedBy: invitedBy,
			JoinedAt:  s.now(),
		}
		if err := db.Create(&assignment).Error; err != nil {
			return writeError(err, "user already holds this role in the tenant", "assignment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateUser(ctx, userID)
	logger.FromContext(ctx).Info("User assigned to tenant",
		zap.Uint("user_id", userID),
		zap.Uint("tenant_id", tenantID),
		zap.Uint("role_id", roleID),
		zap.Bool("is_primary", isPrimary))
	return &assignment, nil
}

// checkQuota rejects a user who is new to the tenant once max_users is reached
func (s *UserTenantService) checkQuota(db *gorm.DB, tenant *model.Tenant, userID uint) error {
	if tenant.MaxUsers <= 0 {
		return nil
	}

	var existing int64
	err := db.Model(&model.UserTenant{}).
		Where("tenant_id = ? AND user_id = ? AND is_active = ?", tenant.ID, userID, true).
		Count(&existing).Error
	if err != nil {
		return requireRelation(err, "check tenant quota")
	}
	if existing > 0 {
		return nil
	}

	var members int64
	err = db.Model(&model.UserTenant{}).
		Where("tenant_id = ? AND is_active = ?", tenant.ID, true).
		Distinct("user_id").
		Count(&members).Error
	if err != nil {
		return requireRelation(err, "check tenant quota")
	}
	if members >= int64(tenant.MaxUsers) {
		return apperror.Conflict("tenant %s has reached its limit of %d users", tenant.Code, tenant.MaxUsers)
	}
	return nil
}

// SetPrimaryTenant makes tenantID the user's primary tenant. Exactly one row
// is flagged: the user's active assignment in that tenant with the lowest id.
func (s *UserTenantService) SetPrimaryTenant(ctx context.Context, userID, tenantID uint) (*model.UserTenant, error) {
	var target model.UserTenant
	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, s.db)

		res := db.Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
			Order("id").Limit(1).Find(&target)
		if res.Error != nil {
			return requireRelation(res.Error, "set primary tenant")
		}
		if target.ID == 0 {
			return apperror.NotFound("user %d has no active assignment in tenant %d", userID, tenantID)
		}

		if err := db.Model(&model.UserTenant{}).Where("user_id = ?", userID).Update("is_primary", false).Error; err != nil {
			return requireRelation(err, "set primary tenant")
		}
		if err := db.Model(&target).Update("is_primary", true).Error; err != nil {
			return apperror.Internal(err, "failed to set primary tenant")
		}
		target.IsPrimary = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Primary tenant set",
		zap.Uint("user_id", userID),
		zap.Uint("tenant_id", tenantID))
	return &target, nil
}

// RemoveRoleFromUserTenant deletes the single (user, tenant, role) row.
// Other roles of the user in the same tenant are untouched.
func (s *UserTenantService) RemoveRoleFromUserTenant(ctx context.Context, userID, tenantID, roleID uint) (bool, error) {
	res := database.FromContext(ctx, s.db).
		Where("user_id = ? AND tenant_id = ? AND role_id = ?", userID, tenantID, roleID).
		Delete(&model.UserTenant{})
	if res.Error != nil {
		if s.tolerate(ctx, res.Error, "remove role from user tenant") {
			return false, nil
		}
		return false, apperror.Internal(res.Error, "failed to remove role")
	}
	if res.RowsAffected > 0 {
		s.invalidateUser(ctx, userID)
	}
	return res.RowsAffected > 0, nil
}

// DeactivateUserTenant soft-deactivates every role of the user in the tenant
func (s *UserTenantService) DeactivateUserTenant(ctx context.Context, userID, tenantID uint) (int64, error) {
	res := database.FromContext(ctx, s.db).Model(&model.UserTenant{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Updates(map[string]interface{}{"is_active": false, "is_primary": false})
	if res.Error != nil {
		if s.tolerate(ctx, res.Error, "deactivate user tenant") {
			return 0, nil
		}
		return 0, apperror.Internal(res.Error, "failed to deactivate assignment")
	}
	if res.RowsAffected > 0 {
		s.invalidateUser(ctx, userID)
	}
	return res.RowsAffected, nil
}

// GetUserTenants lists the user's active assignments with tenant and role
func (s *UserTenantService) GetUserTenants(ctx context.Context, userID uint) ([]model.UserTenant, error) {
	rows := []model.UserTenant{}
	err := database.FromContext(ctx, s.db).
		Preload("Tenant").Preload("Role").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("id").Find(&rows).Error
	if err != nil {
		if s.tolerate(ctx, err, "get user tenants") {
			return []model.UserTenant{}, nil
		}
		return nil, apperror.Internal(err, "failed to load user tenants")
	}
	return rows, nil
}

// GetTenantUsers lists the tenant's active assignments with user and role
func (s *UserTenantService) GetTenantUsers(ctx context.Context, tenantID uint) ([]model.UserTenant, error) {
	rows := []model.UserTenant{}
	err := database.FromContext(ctx, s.db).
		Preload("User").Preload("Role").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("id").Find(&rows).Error
	if err != nil {
		if s.tolerate(ctx, err, "get tenant users") {
			return []model.UserTenant{}, nil
		}
		return nil, apperror.Internal(err, "failed to load tenant users")
	}
	return rows, nil
}

// GetPrimaryTenant returns the user's primary tenant, or nil when none is set
func (s *UserTenantService) GetPrimaryTenant(ctx context.Context, userID uint) (*model.Tenant, error) {
	var row model.UserTenant
	res := database.FromContext(ctx, s.db).
		Preload("Tenant").
		Where("user_id = ? AND is_primary = ? AND is_active = ?", userID, true, true).
		Limit(1).Find(&row)
	if res.Error != nil {
		if s.tolerate(ctx, res.Error, "get primary tenant") {
			return nil, nil
		}
		return nil, apperror.Internal(res.Error, "failed to load primary tenant")
	}
	if row.ID == 0 {
		return nil, nil
	}
	return row.Tenant, nil
}

// GetUserRolesInTenant lists the roles the user actively holds in the tenant
func (s *UserTenantService) GetUserRolesInTenant(ctx context.Context, userID, tenantID uint) ([]model.Role, error) {
	roles := []model.Role{}
	err := database.FromContext(ctx, s.db).Model(&model.Role{}).
		Joins("JOIN user_tenants ON user_tenants.role_id = roles.id").
		Where("user_tenants.user_id = ? AND user_tenants.tenant_id = ? AND user_tenants.is_active = ?", userID, tenantID, true).
		Order("roles.id").
		Find(&roles).Error
	if err != nil {
		if s.tolerate(ctx, err, "get user roles in tenant") {
			return []model.Role{}, nil
		}
		return nil, apperror.Internal(err, "failed to load roles")
	}
	return roles, nil
}

// tolerate reports whether a read may treat err as an empty result
func (s *UserTenantService) tolerate(ctx context.Context, err error, op string) bool {
	if !database.IsMissingRelation(err) {
		return false
	}
	logger.FromContext(ctx).Warn("Relation not provisioned, returning empty result",
		zap.String("operation", op),
		zap.Error(err))
	return true
}

func (s *UserTenantService) invalidateUser(ctx context.Context, userID uint) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		logger.FromContext(ctx).Warn("Failed to invalidate permission cache",
			zap.Uint("user_id", userID),
			zap.Error(err))
	}
}
