package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
)

func TestCreateRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.tenant(t, "A")
	b := f.tenant(t, "B")

	f.globalRole(t, "AUDITOR")
	_, err := f.roles.Create(ctx, CreateRoleInput{Name: "AUDITOR", Scope: model.ScopeGlobal})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	f.tenantRole(t, "CLERK", a.ID)
	f.tenantRole(t, "CLERK", b.ID)
	_, err = f.roles.Create(ctx, CreateRoleInput{Name: "CLERK", Scope: model.ScopeTenant, TenantID: &a.ID})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = f.roles.Create(ctx, CreateRoleInput{Name: "ORPHAN", Scope: model.ScopeTenant})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	roles, err := f.roles.List(ctx, &a.ID)
	require.NoError(t, err)
	names := []string{}
	for _, r := range roles {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"AUDITOR", "CLERK"}, names)
}

func TestSystemRolesAreProtected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.catalog.Seed(ctx))
	admin := systemRole(t, f, model.RoleTenantAdmin)

	name := "RENAMED"
	_, err := f.roles.Update(ctx, admin.ID, &name, nil)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	assert.True(t, apperror.Is(f.roles.Delete(ctx, admin.ID), apperror.KindForbidden))
}

func TestDeleteRole(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "u")
	tn := f.tenant(t, "A")
	r := f.tenantRole(t, "CLERK", tn.ID)
	_, err := f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, false, nil)
	require.NoError(t, err)

	assert.True(t, apperror.Is(f.roles.Delete(ctx, r.ID), apperror.KindConflict))

	_, err = f.userTenants.RemoveRoleFromUserTenant(ctx, u.ID, tn.ID, r.ID)
	require.NoError(t, err)
	require.NoError(t, f.roles.Delete(ctx, r.ID))
	_, err = f.roles.Get(ctx, r.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestGrantAndRevokePermission(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.catalog.Seed(ctx))
	u := f.user(t, "clerk")
	tn := f.tenant(t, "A")
	r := f.tenantRole(t, "CLERK", tn.ID)
	_, err := f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, true, nil)
	require.NoError(t, err)

	perm, err := f.catalog.CreatePermission(ctx, CreatePermissionInput{Resource: "quotations", Action: "create", Scope: model.ScopeTenant, TenantID: &tn.ID})
	require.NoError(t, err)

	first, err := f.roles.GrantPermission(ctx, r.ID, perm.ID, &u.ID)
	require.NoError(t, err)
	second, err := f.roles.GrantPermission(ctx, r.ID, perm.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	ok, err := f.authz.HasPermission(ctx, u.ID, &tn.ID, "quotations", "create")
	require.NoError(t, err)
	assert.True(t, ok)

	perms, err := f.roles.Permissions(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "quotations:create", perms[0].Key())

	require.NoError(t, f.roles.RevokePermission(ctx, r.ID, perm.ID))
	assert.True(t, apperror.Is(f.roles.RevokePermission(ctx, r.ID, perm.ID), apperror.KindNotFound))

	ok, err = f.authz.HasPermission(ctx, u.ID, &tn.ID, "quotations", "create")
	require.NoError(t, err)
	assert.False(t, ok)
}
