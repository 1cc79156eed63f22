package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/user-service/internal/model"
)

func TestBootstrapAdmin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	in := BootstrapAdminInput{Username: "root", Email: "root@example.com", Password: "change-me-now"}

	_, err := BootstrapAdmin(ctx, f.users, f.tenants, in)
	assert.True(t, apperror.Is(err, apperror.KindConflict), "catalog not seeded")

	require.NoError(t, f.catalog.Seed(ctx))
	admin, err := BootstrapAdmin(ctx, f.users, f.tenants, in)
	require.NoError(t, err)
	again, err := BootstrapAdmin(ctx, f.users, f.tenants, in)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	var rows int64
	require.NoError(t, f.db.Model(&model.UserTenant{}).Where("user_id = ?", admin.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	ok, err := f.authz.HasPermission(ctx, admin.ID, nil, "tenants", "create")
	require.NoError(t, err)
	assert.True(t, ok)
}
