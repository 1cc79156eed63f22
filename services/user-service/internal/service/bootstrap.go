package service

import (
	"context"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"go.uber.org/zap"
)

// BootstrapAdminInput names the first super administrator and its home tenant
type BootstrapAdminInput struct {
	Username   string
	Email      string
	Password   string
	TenantCode string
	TenantName string
}

// BootstrapAdmin makes sure a SUPER_ADMIN exists. The user and the home
// tenant are created when missing, so running it again is harmless.
// The catalog must be seeded first.
func BootstrapAdmin(ctx context.Context, users *UserService, tenants *TenantService, in BootstrapAdminInput) (*model.User, error) {
	if in.TenantCode == "" {
		in.TenantCode = "SYSTEM"
	}
	if in.TenantName == "" {
		in.TenantName = "System"
	}

	var user *model.User
	err := database.RunInTx(ctx, users.db, func(ctx context.Context) error {
		db := database.FromContext(ctx, users.db)

		var existing model.User
		res := db.Where("username = ?", in.Username).Limit(1).Find(&existing)
		if res.Error != nil {
			return apperror.Internal(res.Error, "failed to load admin user")
		}
		user = &existing
		if existing.ID == 0 {
			created, err := users.Create(ctx, CreateUserInput{Username: in.Username, Email: in.Email, Password: in.Password})
			if err != nil {
				return err
			}
			user = created
		}

		var tenant model.Tenant
		if res := db.Where("code = ?", in.TenantCode).Limit(1).Find(&tenant); res.Error != nil {
			return apperror.Internal(res.Error, "failed to load system tenant")
		}
		if tenant.ID == 0 {
			created, err := tenants.Onboard(ctx, OnboardTenantInput{
				Code:             in.TenantCode,
				Name:             in.TenantName,
				SubscriptionTier: model.TierEnterprise,
			})
			if err != nil {
				return err
			}
			tenant = *created
		}

		var role model.Role
		err := db.Where("name = ? AND is_system = ? AND tenant_id IS NULL", model.RoleSuperAdmin, true).First(&role).Error
		if err != nil {
			if database.IsNotFound(err) {
				return apperror.Conflict("system role %s is not seeded", model.RoleSuperAdmin)
			}
			return apperror.Internal(err, "failed to load %s role", model.RoleSuperAdmin)
		}

		_, err = users.userTenants.AssignUserToTenant(ctx, user.ID, tenant.ID, role.ID, true, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Super administrator ready",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))
	return user, nil
}
