package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
)

func TestOnboardAssignsOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.catalog.Seed(ctx))
	owner := f.user(t, "owner")

	tn, err := f.tenants.Onboard(ctx, OnboardTenantInput{Code: "ACME", Name: "Acme Ltd", OwnerUserID: &owner.ID})
	require.NoError(t, err)
	assert.Equal(t, model.TenantStatusActive, tn.Status)
	assert.Equal(t, model.TierFree, tn.SubscriptionTier)
	assert.Equal(t, 10, tn.MaxUsers)
	assert.Equal(t, "Acme Ltd", tn.DisplayName)

	primary, err := f.userTenants.GetPrimaryTenant(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, primary)
	assert.Equal(t, tn.ID, primary.ID)

	roles, err := f.userTenants.GetUserRolesInTenant(ctx, owner.ID, tn.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, model.RoleTenantAdmin, roles[0].Name)
}

func TestOnboardRollsBackOnOwnerFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.catalog.Seed(ctx))
	missing := uint(404)

	_, err := f.tenants.Onboard(ctx, OnboardTenantInput{Code: "GHOST", Name: "Ghost", OwnerUserID: &missing})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, total, err := f.tenants.List(ctx, TenantFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestOnboardValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tax := "0105551234567"

	_, err := f.tenants.Onboard(ctx, OnboardTenantInput{Code: "A", Name: "A", TaxCode: &tax})
	require.NoError(t, err)
	_, err = f.tenants.Onboard(ctx, OnboardTenantInput{Code: "A", Name: "Again"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	_, err = f.tenants.Onboard(ctx, OnboardTenantInput{Code: "B", Name: "B", TaxCode: &tax})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	_, err = f.tenants.Onboard(ctx, OnboardTenantInput{Code: "", Name: "B"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	_, err = f.tenants.Onboard(ctx, OnboardTenantInput{Code: "C", Name: "C", SubscriptionTier: "GOLD"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestTenantLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	tn := f.tenant(t, "LIFE")
	u := f.user(t, "u")
	r := f.globalRole(t, "R")

	tier := model.TierPremium
	updated, err := f.tenants.Update(ctx, tn.ID, UpdateTenantInput{SubscriptionTier: &tier, Settings: map[string]interface{}{"currency": "THB"}})
	require.NoError(t, err)
	assert.Equal(t, model.TierPremium, updated.SubscriptionTier)
	assert.Equal(t, "THB", updated.Settings["currency"])

	suspended, err := f.tenants.Suspend(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantStatusSuspended, suspended.Status)

	deactivated, err := f.tenants.Deactivate(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantStatusInactive, deactivated.Status)

	_, err = f.userTenants.AssignUserToTenant(ctx, u.ID, tn.ID, r.ID, false, nil)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	list, total, err := f.tenants.List(ctx, TenantFilter{Status: model.TenantStatusInactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "LIFE", list[0].Code)

	_, err = f.tenants.Get(ctx, 999)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
