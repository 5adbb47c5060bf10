package auth_test

import (
	"testing"
	"time"

	auth "github.com/archivista/archivista-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintScopedToken(t *testing.T) {
	identity := staticIdentity{id: "user-1", roles: []string{auth.RoleUser}}
	service := auth.NewTokenService([]byte("mint-test-key"), 24, "archivista", nil, nil)

	t.Run("inherits service defaults", func(t *testing.T) {
		token, expiresAt, err := auth.MintScopedToken(service, identity, auth.ScopedTokenOptions{})
		require.NoError(t, err)

		claims, err := service.Validate(token)
		require.NoError(t, err)

		assert.Equal(t, "user-1", claims.UserID())
		assert.True(t, claims.HasRole(auth.RoleUser))
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)
		assert.WithinDuration(t, expiresAt, claims.Expires(), time.Second)
	})

	t.Run("ttl override shortens the token", func(t *testing.T) {
		token, expiresAt, err := auth.MintScopedToken(service, identity, auth.ScopedTokenOptions{
			TTL: 15 * time.Minute,
		})
		require.NoError(t, err)

		claims, err := service.Validate(token)
		require.NoError(t, err)

		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)
		assert.WithinDuration(t, expiresAt, claims.Expires(), time.Second)
	})

	t.Run("scopes ride along as extension claims", func(t *testing.T) {
		token, _, err := auth.MintScopedToken(service, identity, auth.ScopedTokenOptions{
			Scopes: []string{"exports:read", "exports:write"},
		})
		require.NoError(t, err)

		validated, err := service.Validate(token)
		require.NoError(t, err)

		jwtClaims, ok := validated.(*auth.JWTClaims)
		require.True(t, ok)
		assert.Equal(t, []string{"exports:read", "exports:write"}, jwtClaims.Scopes)
	})

	t.Run("role snapshot matches the identity", func(t *testing.T) {
		admin := staticIdentity{id: "admin-1", roles: []string{auth.RoleAdmin}}

		token, _, err := auth.MintScopedToken(service, admin, auth.ScopedTokenOptions{})
		require.NoError(t, err)

		claims, err := service.Validate(token)
		require.NoError(t, err)

		assert.True(t, claims.HasRole(auth.RoleAdmin))
		assert.False(t, claims.HasRole(auth.RoleUser))
	})

	t.Run("every minted token carries a distinct jti", func(t *testing.T) {
		first, _, err := auth.MintScopedToken(service, identity, auth.ScopedTokenOptions{})
		require.NoError(t, err)

		second, _, err := auth.MintScopedToken(service, identity, auth.ScopedTokenOptions{})
		require.NoError(t, err)

		firstClaims, err := service.Validate(first)
		require.NoError(t, err)
		secondClaims, err := service.Validate(second)
		require.NoError(t, err)

		firstJWT := firstClaims.(*auth.JWTClaims)
		secondJWT := secondClaims.(*auth.JWTClaims)
		assert.NotEmpty(t, firstJWT.ID)
		assert.NotEqual(t, firstJWT.ID, secondJWT.ID)
	})

	t.Run("negative ttl rejected", func(t *testing.T) {
		_, _, err := auth.MintScopedToken(service, identity, auth.ScopedTokenOptions{
			TTL: -time.Minute,
		})
		assert.Error(t, err)
	})

	t.Run("nil token service rejected", func(t *testing.T) {
		_, _, err := auth.MintScopedToken(nil, identity, auth.ScopedTokenOptions{})
		assert.Error(t, err)
	})

	t.Run("nil identity rejected", func(t *testing.T) {
		_, _, err := auth.MintScopedToken(service, nil, auth.ScopedTokenOptions{})
		assert.Error(t, err)
	})
}
