package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "magasin/internal/core/context"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken(appctx.UserContext{
		UserID:   17,
		Email:    "gerant@magasin.test",
		Roles:    []string{"manager"},
		StoreIDs: []int64{1, 2},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(17), user.UserID)
	assert.Equal(t, "gerant@magasin.test", user.Email)
	assert.Equal(t, []int64{1, 2}, user.StoreIDs)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("other-secret"))
		token, _, err := other.GenerateAccessToken(appctx.UserContext{UserID: 1})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		cfg := DefaultJWTConfig("test-secret")
		cfg.AccessTokenTTL = -time.Minute
		token, _, err := NewJWTService(cfg).GenerateAccessToken(appctx.UserContext{UserID: 1})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig("test-secret")
		cfg.Issuer = "someone-else"
		token, _, err := NewJWTService(cfg).GenerateAccessToken(appctx.UserContext{UserID: 1})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("no user", func(t *testing.T) {
		token, _, err := svc.GenerateAccessToken(appctx.UserContext{})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrMissingUser)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}
