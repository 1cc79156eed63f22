package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
)

func TestAssignUserToTenantIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "alice")
	tn := f.tenant(t, "ACME")
	r := f.globalRole(t, "ACCOUNTANT")

	first, err := f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, false, nil)
	require.NoError(t, err)
	second, err := f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, true, uintPtr(99))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(1), f.countRows(t, u.ID, tn.ID))
	assert.True(t, second.IsPrimary)
	require.NotNil(t, second.InvitedBy)
	assert.Equal(t, uint(99), *second.InvitedBy)
}

func TestAssignReactivatesDeactivatedRow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "alice")
	tn := f.tenant(t, "ACME")
	r := f.globalRole(t, "ACCOUNTANT")

	_, err := f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, true, nil)
	require.NoError(t, err)
	n, err := f.userTenants.DeactivateUserTenant(ctx, u.ID, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := f.userTenants.GetUserTenants(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, f.primaryRows(t, u.ID))

	again, err := f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, false, nil)
	require.NoError(t, err)
	assert.True(t, again.IsActive)
	assert.Equal(t, int64(1), f.countRows(t, u.ID, tn.ID))
}

func TestAssignPrimaryLeavesSinglePrimary(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "bob")
	a := f.tenant(t, "A")
	b := f.tenant(t, "B")
	r := f.globalRole(t, "SALES")

	_, err := f.userTenants.AssignUserToTenant(ctx, u.ID, a.ID, r.ID, true, nil)
	require.NoError(t, err)
	_, err = f.userTenants.AssignUserToTenant(ctx, u.ID, b.ID, r.ID, true, nil)
	require.NoError(t, err)

	primaries := f.primaryRows(t, u.ID)
	require.Len(t, primaries, 1)
	assert.Equal(t, b.ID, primaries[0].TenantID)

	primary, err := f.userTenants.GetPrimaryTenant(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, "B", primary.Code)
}

func TestSetPrimaryTenantFlagsExactlyOneRow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "carol")
	a := f.tenant(t, "A")
	b := f.tenant(t, "B")
	r1 := f.globalRole(t, "R1")
	r2 := f.globalRole(t, "R2")

	_, err := f.userTenants.AssignUserToTenant(ctx, u.ID, a.ID, r1.ID, true, nil)
	require.NoError(t, err)
	lowest, err := f.userTenants.AssignUserToTenant(ctx, u.ID, b.ID, r1.ID, false, nil)
	require.NoError(t, err)
	_, err = f.userTenants.AssignUserToTenant(ctx, u.ID, b.ID, r2.ID, false, nil)
	require.NoError(t, err)

	got, err := f.userTenants.SetPrimaryTenant(ctx, u.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, lowest.ID, got.ID)
	assert.True(t, got.IsPrimary)

	primaries := f.primaryRows(t, u.ID)
	require.Len(t, primaries, 1)
	assert.Equal(t, lowest.ID, primaries[0].ID)
}

func TestSetPrimaryTenantWithoutAssignment(t *testing.T) {
	f := newFixture(t, nil)
	u := f.user(t, "dave")
	tn := f.tenant(t, "A")

	_, err := f.userTenants.SetPrimaryTenant(context.Background(), u.ID, tn.ID)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestRemoveRoleKeepsOtherRoles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "erin")
	tn := f.tenant(t, "T")
	r1 := f.globalRole(t, "R1")
	r2 := f.globalRole(t, "R2")

	_, err := f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r1.ID, false, nil)
	require.NoError(t, err)
	_, err = f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r2.ID, false, nil)
	require.NoError(t, err)

	removed, err := f.userTenants.RemoveRoleFromUserTenant(ctx, u.ID, tn.ID, r1.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	roles, err := f.userTenants.GetUserRolesInTenant(ctx, u.ID, tn.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, r2.ID, roles[0].ID)

	removed, err = f.userTenants.RemoveRoleFromUserTenant(ctx, u.ID, tn.ID, r1.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAssignValidatesRoleTenant(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "frank")
	a := f.tenant(t, "A")
	b := f.tenant(t, "B")
	onlyA := f.tenantRole(t, "LOCAL", a.ID)

	_, err := f.userTenants.AssignUserToTenant(ctx, u.ID, b.ID, onlyA.ID, false, nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.userTenants.AssignUserToTenant(ctx, u.ID, a.ID, onlyA.ID, false, nil)
	assert.NoError(t, err)

	_, err = f.userTenants.AssignUserToTenant(ctx, 999, a.ID, onlyA.ID, false, nil)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAssignEnforcesUserQuota(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tn, err := f.tenants.Onboard(ctx, OnboardTenantInput{Code: "SMALL", Name: "Small", MaxUsers: 1})
	require.NoError(t, err)
	r1 := f.globalRole(t, "R1")
	r2 := f.globalRole(t, "R2")
	u1 := f.user(t, "u1")
	u2 := f.user(t, "u2")

	_, err = f.userTenants.AssignUserToTenant(ctx, u1.ID, tn.ID, r1.ID, false, nil)
	require.NoError(t, err)
	// a second role for a member does not count against the quota
	_, err = f.userTenants.AssignUserToTenant(ctx, u1.ID, tn.ID, r2.ID, false, nil)
	require.NoError(t, err)

	_, err = f.userTenants.AssignUserToTenant(ctx, u2.ID, tn.ID, r1.ID, false, nil)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestMissingRelation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	u := f.user(t, "gina")
	tn := f.tenant(t, "T")
	r := f.globalRole(t, "R")
	require.NoError(t, f.db.Migrator().DropTable(&model.UserTenant{}))

	rows, err := f.userTenants.GetUserTenants(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	users, err := f.userTenants.GetTenantUsers(ctx, tn.ID)
	require.NoError(t, err)
	assert.Empty(t, users)

	primary, err := f.userTenants.GetPrimaryTenant(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, primary)

	roles, err := f.userTenants.GetUserRolesInTenant(ctx, u.ID, tn.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	_, err = f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, true, nil)
	require.Error(t, err)
	assert.Contains(t, apperror.Message(err), "not provisioned")

	_, err = f.userTenants.SetPrimaryTenant(ctx, u.ID, tn.ID)
	require.Error(t, err)
	assert.Contains(t, apperror.Message(err), "not provisioned")
}
