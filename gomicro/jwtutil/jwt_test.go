package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "k", ExpirationHours: 1})
	tenantID := uint(7)

	token, err := j.GenerateTokenWithTenant("a@b.c", "alice", 3, &tenantID)
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, uint(7), *claims.TenantID)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewJWTUtil(&JWTConfig{SigningKey: "a", ExpirationHours: 1}).GenerateToken("x@y.z", "x", 1)
	require.NoError(t, err)

	_, err = NewJWTUtil(&JWTConfig{SigningKey: "b", ExpirationHours: 1}).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "k", ExpirationHours: 1})
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := j.GenerateToken("x@y.z", "x", 1)
	require.NoError(t, err)

	j.now = time.Now
	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}

func TestNilConfig(t *testing.T) {
	j := &JWTUtil{now: time.Now}
	_, err := j.GenerateToken("a", "b", 1)
	assert.Error(t, err)
}
