package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
)

func TestSeedIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.catalog.Seed(ctx))
	require.NoError(t, f.catalog.Seed(ctx))

	count := func(m interface{}) int64 {
		var n int64
		require.NoError(t, f.db.Model(m).Count(&n).Error)
		return n
	}
	pairs := int64(len(DefaultResources) * len(DefaultActions))
	assert.Equal(t, int64(len(DefaultResources)), count(&model.Resource{}))
	assert.Equal(t, int64(len(DefaultActions)), count(&model.Action{}))
	assert.Equal(t, int64(3), count(&model.Role{}))
	assert.Equal(t, 2*pairs, count(&model.Permission{}))
	assert.Equal(t, 2*pairs+int64(len(DefaultResources)), count(&model.RolePermission{}))
}

func TestCreatePermission(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.catalog.CreateResource(ctx, "Stock", "Stock", "")
	require.NoError(t, err)
	_, err = f.catalog.CreateAction(ctx, "count", "Count", "")
	require.NoError(t, err)
	tn := f.tenant(t, "A")

	perm, err := f.catalog.CreatePermission(ctx, CreatePermissionInput{Resource: "stock", Action: "COUNT", Scope: model.ScopeTenant})
	require.NoError(t, err)
	assert.Equal(t, "stock:count", perm.Key())

	_, err = f.catalog.CreatePermission(ctx, CreatePermissionInput{Resource: "stock", Action: "count", Scope: model.ScopeTenant})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	pinned, err := f.catalog.CreatePermission(ctx, CreatePermissionInput{Resource: "stock", Action: "count", Scope: model.ScopeTenant, TenantID: &tn.ID})
	require.NoError(t, err)
	assert.NotEqual(t, perm.ID, pinned.ID)

	_, err = f.catalog.CreatePermission(ctx, CreatePermissionInput{Resource: "stock", Action: "count", Scope: model.ScopeGlobal, TenantID: &tn.ID})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.catalog.CreatePermission(ctx, CreatePermissionInput{Resource: "missing", Action: "count"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	perms, err := f.catalog.ListPermissions(ctx, PermissionFilter{Resource: "stock"})
	require.NoError(t, err)
	assert.Len(t, perms, 2)
	require.NotNil(t, perms[0].Resource)
	assert.Equal(t, "stock", perms[0].Resource.Code)
}

func TestCreateResourceRejectsDuplicates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.catalog.CreateResource(ctx, "orders", "Orders", "")
	require.NoError(t, err)
	_, err = f.catalog.CreateResource(ctx, " ORDERS ", "Orders", "")
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	_, err = f.catalog.CreateResource(ctx, "", "Orders", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
