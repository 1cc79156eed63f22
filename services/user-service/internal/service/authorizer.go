package service

import (
	"context"
	"sort"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// grant is one permission reachable through one active assignment
type grant struct {
	Resource         string
	Action           string
	Scope            model.Scope
	PermTenantID     *uint
	AssignedTenantID uint
	TenantStatus     model.TenantStatus
}

// allows reports whether g applies in the tenant context tenantID (nil = global)
func (g grant) allows(tenantID *uint) bool {
	if g.Scope == model.ScopeGlobal {
		return true
	}
	if tenantID == nil || g.AssignedTenantID != *tenantID {
		return false
	}
	if g.PermTenantID != nil && *g.PermTenantID != *tenantID {
		return false
	}
	return g.TenantStatus == model.TenantStatusActive
}

// Authorizer answers "may user U perform action A on resource R in tenant T"
type Authorizer struct {
	db    *gorm.DB
	cache DecisionCache
}

// NewAuthorizer creates an authorizer; cache may be nil
func NewAuthorizer(db *gorm.DB, cache DecisionCache) *Authorizer {
	if cache == nil {
		cache = NoopCache()
	}
	return &Authorizer{db: db, cache: cache}
}

func (a *Authorizer) grants(ctx context.Context, userID uint, resource, action string) ([]grant, error) {
	q := database.FromContext(ctx, a.db).
		Table("user_tenants").
		Select(`cat_resources.code AS resource, cat_actions.code AS action, permissions.scope AS scope,
			permissions.tenant_id AS perm_tenant_id, user_tenants.tenant_id AS assigned_tenant_id,
			tenants.status AS tenant_status`).
		Joins("JOIN users ON users.id = user_tenants.user_id").
		Joins("JOIN tenants ON tenants.id = user_tenants.tenant_id").
		Joins("JOIN role_permissions ON role_permissions.role_id = user_tenants.role_id").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Joins("JOIN cat_resources ON cat_resources.id = permissions.resource_id").
		Joins("JOIN cat_actions ON cat_actions.id = permissions.action_id").
		Where("user_tenants.user_id = ? AND user_tenants.is_active = ? AND users.is_active = ?", userID, true, true)
	if resource != "" {
		q = q.Where("cat_resources.code = ? AND cat_actions.code = ?", normalizeCode(resource), normalizeCode(action))
	}

	var rows []grant
	if err := q.Scan(&rows).Error; err != nil {
		if database.IsMissingRelation(err) {
			logger.FromContext(ctx).Warn("Relation not provisioned, denying", zap.Error(err))
			return nil, nil
		}
		return nil, apperror.Internal(err, "failed to load grants")
	}
	return rows, nil
}

// HasPermission evaluates the check, consulting the decision cache first
func (a *Authorizer) HasPermission(ctx context.Context, userID uint, tenantID *uint, resource, action string) (bool, error) {
	if userID == 0 || resource == "" || action == "" {
		return false, apperror.Validation("user, resource and action are required")
	}
	log := logger.FromContext(ctx)

	key := decisionKey(userID, tenantID, normalizeCode(resource), normalizeCode(action))
	if allowed, found, err := a.cache.Get(ctx, key); err != nil {
		log.Warn("Permission cache read failed", zap.Error(err))
	} else if found {
		return allowed, nil
	}

	rows, err := a.grants(ctx, userID, resource, action)
	if err != nil {
		return false, err
	}
	allowed := false
	for _, g := range rows {
		if g.allows(tenantID) {
			allowed = true
			break
		}
	}

	if err := a.cache.Set(ctx, key, allowed); err != nil {
		log.Warn("Permission cache write failed", zap.Error(err))
	}
	return allowed, nil
}

// EffectivePermissions lists the "resource:action" pairs the user holds in tenantID
func (a *Authorizer) EffectivePermissions(ctx context.Context, userID uint, tenantID *uint) ([]string, error) {
	rows, err := a.grants(ctx, userID, "", "")
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	for _, g := range rows {
		if g.allows(tenantID) {
			seen[g.Resource+":"+g.Action] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
