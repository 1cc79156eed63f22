package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	db          *gorm.DB
	cache       DecisionCache
	userTenants *UserTenantService
	tenants     *TenantService
	users       *UserService
	roles       *RoleService
	catalog     *CatalogService
	authz       *Authorizer
}

func newFixture(t *testing.T, cache DecisionCache) *fixture {
	t.Helper()
	db, err := database.Open(&config.DBConfig{Driver: "sqlite", DBName: ":memory:", LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	if cache == nil {
		cache = NoopCache()
	}
	ut := NewUserTenantService(db, cache)
	users := NewUserService(db, ut, cache)
	users.bcryptCost = bcrypt.MinCost
	return &fixture{
		db:          db,
		cache:       cache,
		userTenants: ut,
		tenants:     NewTenantService(db, ut, cache),
		users:       users,
		roles:       NewRoleService(db, cache),
		catalog:     NewCatalogService(db),
		authz:       NewAuthorizer(db, cache),
	}
}

func (f *fixture) user(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), CreateUserInput{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) tenant(t *testing.T, code string) *model.Tenant {
	t.Helper()
	tn, err := f.tenants.Onboard(context.Background(), OnboardTenantInput{Code: code, Name: "Tenant " + code})
	require.NoError(t, err)
	return tn
}

func (f *fixture) globalRole(t *testing.T, name string) *model.Role {
	t.Helper()
	r, err := f.roles.Create(context.Background(), CreateRoleInput{Name: name, Scope: model.ScopeGlobal})
	require.NoError(t, err)
	return r
}

func (f *fixture) tenantRole(t *testing.T, name string, tenantID uint) *model.Role {
	t.Helper()
	r, err := f.roles.Create(context.Background(), CreateRoleInput{Name: name, Scope: model.ScopeTenant, TenantID: &tenantID})
	require.NoError(t, err)
	return r
}

func (f *fixture) primaryRows(t *testing.T, userID uint) []model.UserTenant {
	t.Helper()
	var rows []model.UserTenant
	require.NoError(t, f.db.Where("user_id = ? AND is_primary = ?", userID, true).Find(&rows).Error)
	return rows
}

func (f *fixture) countRows(t *testing.T, userID, tenantID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.UserTenant{}).Where("user_id = ? AND tenant_id = ?", userID, tenantID).Count(&n).Error)
	return n
}

func uintPtr(v uint) *uint { return &v }
