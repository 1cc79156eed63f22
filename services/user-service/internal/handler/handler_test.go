package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/config"
	"github.com/suteetoe/erpsuite/gomicro/database"
	"github.com/suteetoe/erpsuite/gomicro/jwtutil"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
	"github.com/suteetoe/erpsuite/services/user-service/internal/service"
	gormlogger "gorm.io/gorm/logger"
)

type testServer struct {
	e   *echo.Echo
	jwt *jwtutil.JWTUtil
	s   *Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(&config.DBConfig{Driver: "sqlite", DBName: ":memory:", LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	ut := service.NewUserTenantService(db, nil)
	s := &Services{
		Tenants:     service.NewTenantService(db, ut, nil),
		Users:       service.NewUserService(db, ut, nil),
		Roles:       service.NewRoleService(db, nil),
		Catalog:     service.NewCatalogService(db),
		UserTenants: ut,
		Authorizer:  service.NewAuthorizer(db, nil),
		JWT:         jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test", ExpirationHours: 1}),
	}
	require.NoError(t, s.Catalog.Seed(context.Background()))
	InitHandlers(s)

	e := echo.New()
	RegisterRoutes(e)
	return &testServer{e: e, jwt: s.JWT, s: s}
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, login, password string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"login":%q,"password":%q}`, login, password))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Token
}

func decodeID(t *testing.T, rec *httptest.ResponseRecorder) uint {
	t.Helper()
	var out struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotZero(t, out.ID)
	return out.ID
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/register", "", `{"username":"alice","email":"alice@example.com","password":"password1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = ts.do(t, http.MethodPost, "/auth/register", "", `{"username":"alice","email":"alice@example.com","password":"password1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	token := ts.login(t, "alice", "password1")
	claims, err := ts.jwt.ValidateToken(token)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)

	rec = ts.do(t, http.MethodPost, "/auth/login", "", `{"login":"alice","password":"wrong-one"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/tenants", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantAdministrationFlow(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := service.BootstrapAdmin(ctx, ts.s.Users, ts.s.Tenants, service.BootstrapAdminInput{
		Username: "root", Email: "root@example.com", Password: "root-password",
	})
	require.NoError(t, err)
	rootToken := ts.login(t, "root", "root-password")

	rec := ts.do(t, http.MethodPost, "/auth/register", "", `{"username":"bob","email":"bob@example.com","password":"password1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	bobToken := ts.login(t, "bob", "password1")

	// bob holds no grants yet
	rec = ts.do(t, http.MethodPost, "/api/tenants", bobToken, `{"code":"ACME","name":"Acme"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/tenants", rootToken, `{"code":"ACME","name":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tenantID := decodeID(t, rec)

	rec = ts.do(t, http.MethodPost, "/api/roles", rootToken, fmt.Sprintf(`{"name":"CLERK","scope":"TENANT","tenant_id":%d}`, tenantID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	clerkID := decodeID(t, rec)

	bob, _, err := ts.s.Users.Authenticate(ctx, "bob", "password1")
	require.NoError(t, err)

	body := fmt.Sprintf(`{"user_id":%d,"tenant_id":%d,"role_id":%d,"is_primary":true}`, bob.ID, tenantID, clerkID)
	rec = ts.do(t, http.MethodPost, "/api/user-tenants", rootToken, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/user-tenants", rootToken, body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/tenants/%d/users", tenantID), rootToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var users struct {
		Data []model.UserTenant `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users.Data, 1)

	bobToken = ts.login(t, "bob", "password1")
	rec = ts.do(t, http.MethodPost, "/api/authz/check", bobToken, `{"resource":"orders","action":"read"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":false`)

	path := fmt.Sprintf("/api/user-tenants/%d/%d/%d", bob.ID, tenantID, clerkID)
	rec = ts.do(t, http.MethodDelete, path, rootToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodDelete, path, rootToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/tenants/%d", tenantID), rootToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"INACTIVE"`)
}

func TestTenantAdminScopedToOwnTenant(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner, err := ts.s.Users.Create(ctx, service.CreateUserInput{Username: "owner", Email: "owner@example.com", Password: "owner-password"})
	require.NoError(t, err)
	own, err := ts.s.Tenants.Onboard(ctx, service.OnboardTenantInput{Code: "OWN", Name: "Own", OwnerUserID: &owner.ID})
	require.NoError(t, err)
	other, err := ts.s.Tenants.Onboard(ctx, service.OnboardTenantInput{Code: "OTHER", Name: "Other"})
	require.NoError(t, err)

	token := ts.login(t, "owner", "owner-password")

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/tenants/%d", own.ID), token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/tenants/%d", other.ID), token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/tenants", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/authz/permissions", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orders:approve"`)
}

func roleID(t *testing.T, ts *testServer, name string) uint {
	t.Helper()
	roles, err := ts.s.Roles.List(context.Background(), nil)
	require.NoError(t, err)
	for _, r := range roles {
		if r.Name == name {
			return r.ID
		}
	}
	t.Fatalf("role %s not seeded", name)
	return 0
}

func TestTenantAdminCannotGrantGlobalRoles(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner, err := ts.s.Users.Create(ctx, service.CreateUserInput{Username: "eve", Email: "eve@example.com", Password: "eve-password"})
	require.NoError(t, err)
	own, err := ts.s.Tenants.Onboard(ctx, service.OnboardTenantInput{Code: "EVE", Name: "Eve", OwnerUserID: &owner.ID})
	require.NoError(t, err)
	token := ts.login(t, "eve", "eve-password")

	body := fmt.Sprintf(`{"user_id":%d,"tenant_id":%d,"role_id":%d}`, owner.ID, own.ID, roleID(t, ts, model.RoleSuperAdmin))
	rec := ts.do(t, http.MethodPost, "/api/user-tenants", token, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	globals, err := ts.s.Catalog.ListPermissions(ctx, service.PermissionFilter{Resource: "tenants", Scope: model.ScopeGlobal})
	require.NoError(t, err)
	require.NotEmpty(t, globals)
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/roles/%d/permissions", roleID(t, ts, model.RoleTenantAdmin)), token,
		fmt.Sprintf(`{"permission_id":%d}`, globals[0].ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	allowed, err := ts.s.Authorizer.HasPermission(ctx, owner.ID, nil, "tenants", "delete")
	require.NoError(t, err)
	assert.False(t, allowed)

	// tenant roles stay assignable inside the own tenant
	member, err := ts.s.Users.Create(ctx, service.CreateUserInput{Username: "mallory", Email: "mallory@example.com", Password: "mallory-password"})
	require.NoError(t, err)
	rec = ts.do(t, http.MethodPost, "/api/roles", token, fmt.Sprintf(`{"name":"CLERK","scope":"TENANT","tenant_id":%d}`, own.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	clerk := decodeID(t, rec)
	body = fmt.Sprintf(`{"user_id":%d,"tenant_id":%d,"role_id":%d}`, member.ID, own.ID, clerk)
	rec = ts.do(t, http.MethodPost, "/api/user-tenants", token, body)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCheckPermissionOfAnotherUser(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	owner, err := ts.s.Users.Create(ctx, service.CreateUserInput{Username: "owner", Email: "owner@example.com", Password: "owner-password"})
	require.NoError(t, err)
	own, err := ts.s.Tenants.Onboard(ctx, service.OnboardTenantInput{Code: "OWN", Name: "Own", OwnerUserID: &owner.ID})
	require.NoError(t, err)
	other, err := ts.s.Tenants.Onboard(ctx, service.OnboardTenantInput{Code: "OTHER", Name: "Other"})
	require.NoError(t, err)
	_, err = ts.s.Users.Create(ctx, service.CreateUserInput{Username: "carol", Email: "carol@example.com", Password: "carol-password"})
	require.NoError(t, err)

	carolToken := ts.login(t, "carol", "carol-password")
	rec := ts.do(t, http.MethodPost, "/api/authz/check", carolToken,
		fmt.Sprintf(`{"user_id":%d,"tenant_id":%d,"resource":"orders","action":"read"}`, owner.ID, own.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/authz/check", carolToken, `{"resource":"orders","action":"read"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":false`)

	ownerToken := ts.login(t, "owner", "owner-password")
	rec = ts.do(t, http.MethodPost, "/api/authz/check", ownerToken,
		fmt.Sprintf(`{"user_id":%d,"tenant_id":%d,"resource":"orders","action":"read"}`, owner.ID, own.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":true`)

	rec = ts.do(t, http.MethodPost, "/api/authz/check", ownerToken,
		fmt.Sprintf(`{"user_id":%d,"tenant_id":%d,"resource":"orders","action":"read"}`, owner.ID+100, other.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
