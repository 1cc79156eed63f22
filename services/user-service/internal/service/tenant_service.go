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

const (
	defaultMaxUsers     = 10
	defaultMaxStorageMB = 1024
)

// OnboardTenantInput creates a tenant and optionally its first administrator
type OnboardTenantInput struct {
	Code                  string
	Name                  string
	DisplayName           string
	TaxCode               *string
	SubscriptionTier      model.SubscriptionTier
	SubscriptionExpiresAt *time.Time
	MaxUsers              int
	MaxStorageMB          int
	Settings              map[string]interface{}
	OwnerUserID           *uint
	CreatedBy             *uint
}

// UpdateTenantInput carries the fields to change; nil means unchanged
type UpdateTenantInput struct {
	Name                  *string
	DisplayName           *string
	TaxCode               *string
	Status                *model.TenantStatus
	SubscriptionTier      *model.SubscriptionTier
	SubscriptionExpiresAt *time.Time
	MaxUsers              *int
	MaxStorageMB          *int
	Settings              map[string]interface{}
}

// TenantFilter narrows ListTenants
type TenantFilter struct {
	Status model.TenantStatus
	Search string
	ListOptions
}

// TenantService manages the tenant lifecycle
type TenantService struct {
	db          *gorm.DB
	userTenants *UserTenantService
	cache       DecisionCache
}

// NewTenantService creates a tenant service
func NewTenantService(db *gorm.DB, userTenants *UserTenantService, cache DecisionCache) *TenantService {
	if cache == nil {
		cache = NoopCache()
	}
	return &TenantService{db: db, userTenants: userTenants, cache: cache}
}

// Onboard creates a tenant and, when an owner is given, assigns the owner
// the built-in TENANT_ADMIN role as primary tenant. Both happen in one transaction.
func (s *TenantService) Onboard(ctx context.Context, in OnboardTenantInput) (*model.Tenant, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		return nil, apperror.Validation("code and name are required")
	}
	if in.SubscriptionTier == "" {
		in.SubscriptionTier = model.TierFree
	}
	if !in.SubscriptionTier.Valid() {
		return nil, apperror.Validation("invalid subscription tier %q", in.SubscriptionTier)
	}
	if in.MaxUsers < 0 || in.MaxStorageMB < 0 {
		return nil, apperror.Validation("quotas must not be negative")
	}
	if in.MaxUsers == 0 {
		in.MaxUsers = defaultMaxUsers
	}
	if in.MaxStorageMB == 0 {
		in.MaxStorageMB = defaultMaxStorageMB
	}
	if in.TaxCode != nil && strings.TrimSpace(*in.TaxCode) == "" {
		in.TaxCode = nil
	}

	tenant := &model.Tenant{
		Code:                  in.Code,
		Name:                  in.Name,
		DisplayName:           in.DisplayName,
		TaxCode:               in.TaxCode,
		Status:                model.TenantStatusActive,
		SubscriptionTier:      in.SubscriptionTier,
		SubscriptionExpiresAt: in.SubscriptionExpiresAt,
		MaxUsers:              in.MaxUsers,
		MaxStorageMB:          in.MaxStorageMB,
		Settings:              in.Settings,
	}
	if tenant.DisplayName == "" {
		tenant.DisplayName = tenant.Name
	}

	err := database.RunInTx(ctx, s.db, func(ctx context.Context) error {
		if err := database.FromContext(ctx, s.db).Create(tenant).Error; err != nil {
			return writeError(err, "tenant code or tax code already exists", "tenant")
		}
		if in.OwnerUserID == nil {
			return nil
		}

		var role model.Role
		err := database.FromContext(ctx, s.db).
			Where("name = ? AND is_system = ? AND tenant_id IS NULL", model.RoleTenantAdmin, true).
			First(&role).Error
		if err != nil {
			if database.IsNotFound(err) {
				return apperror.Conflict("system role %s is not seeded", model.RoleTenantAdmin)
			}
			return apperror.Internal(err, "failed to load %s role", model.RoleTenantAdmin)
		}

		_, err = s.userTenants.AssignUserToTenant(ctx, *in.OwnerUserID, tenant.ID, role.ID, true, in.CreatedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Tenant onboarded",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("code", tenant.Code))
	return tenant, nil
}

// Get returns one tenant
func (s *TenantService) Get(ctx context.Context, id uint) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := database.FromContext(ctx, s.db).First(&tenant, id).Error; err != nil {
		return nil, lookupError(err, "tenant", id)
	}
	return &tenant, nil
}

// List returns tenants matching filter
func (s *TenantService) List(ctx context.Context, filter TenantFilter) ([]model.Tenant, int64, error) {
	q := database.FromContext(ctx, s.db).Model(&model.Tenant{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to count tenants")
	}
	var tenants []model.Tenant
	if err := q.Order("id").Limit(filter.limit()).Offset(filter.Offset).Find(&tenants).Error; err != nil {
		return nil, 0, apperror.Internal(err, "failed to list tenants")
	}
	return tenants, total, nil
}

// Update applies the non-nil fields of in
func (s *TenantService) Update(ctx context.Context, id uint, in UpdateTenantInput) (*model.Tenant, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, apperror.Validation("name must not be empty")
		}
		updates["name"] = *in.Name
	}
	if in.DisplayName != nil {
		updates["display_name"] = *in.DisplayName
	}
	if in.TaxCode != nil {
		if strings.TrimSpace(*in.TaxCode) == "" {
			updates["tax_code"] = nil
		} else {
			updates["tax_code"] = *in.TaxCode
		}
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperror.Validation("invalid status %q", *in.Status)
		}
		updates["status"] = *in.Status
	}
	if in.SubscriptionTier != nil {
		if !in.SubscriptionTier.Valid() {
			return nil, apperror.Validation("invalid subscription tier %q", *in.SubscriptionTier)
		}
		updates["subscription_tier"] = *in.SubscriptionTier
	}
	if in.SubscriptionExpiresAt != nil {
		updates["subscription_expires_at"] = *in.SubscriptionExpiresAt
	}
	if in.MaxUsers != nil {
		if *in.MaxUsers < 0 {
			return nil, apperror.Validation("max_users must not be negative")
		}
		updates["max_users"] = *in.MaxUsers
	}
	if in.MaxStorageMB != nil {
		if *in.MaxStorageMB < 0 {
			return nil, apperror.Validation("max_storage_mb must not be negative")
		}
		updates["max_storage_mb"] = *in.MaxStorageMB
	}

	tenant, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Settings != nil {
		tenant.Settings = in.Settings
		updates["settings"] = tenant.Settings
	}
	if len(updates) == 0 {
		return tenant, nil
	}

	if err := database.FromContext(ctx, s.db).Model(tenant).Updates(updates).Error; err != nil {
		return nil, writeError(err, "tenant tax code already exists", "tenant")
	}
	if in.Status != nil {
		s.invalidate(ctx)
	}
	return s.Get(ctx, id)
}

// Suspend moves the tenant to SUSPENDED; tenant-scoped permissions stop applying
func (s *TenantService) Suspend(ctx context.Context, id uint) (*model.Tenant, error) {
	status := model.TenantStatusSuspended
	return s.Update(ctx, id, UpdateTenantInput{Status: &status})
}

// Deactivate is the soft delete of a tenant
func (s *TenantService) Deactivate(ctx context.Context, id uint) (*model.Tenant, error) {
	status := model.TenantStatusInactive
	return s.Update(ctx, id, UpdateTenantInput{Status: &status})
}

func (s *TenantService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		logger.FromContext(ctx).Warn("Failed to invalidate permission cache", zap.Error(err))
	}
}
