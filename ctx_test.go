package auth_test

import (
	"context"
	"testing"

	auth "github.com/archivista/archivista-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalContext(t *testing.T) {
	principal := auth.AuthenticatedPrincipal{
		AccountID: uuid.New(),
		Username:  "alice",
		Roles:     []string{auth.RoleUser},
	}

	ctx := auth.WithPrincipalContext(context.Background(), principal)

	got, ok := auth.PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, principal.AccountID, got.AccountID)
	assert.Equal(t, "alice", got.Username)

	_, ok = auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)
}

func TestAuthenticatedPrincipal_HasRole(t *testing.T) {
	principal := auth.AuthenticatedPrincipal{
		AccountID: uuid.New(),
		Roles:     []string{auth.RoleAdmin},
	}

	assert.True(t, principal.HasRole(auth.RoleAdmin))
	assert.False(t, principal.HasRole(auth.RoleUser))
	assert.False(t, principal.HasRole("admin"))
}

func TestClaimsContext(t *testing.T) {
	claims := testClaims(uuid.New(), auth.RoleUser)

	ctx := auth.WithClaimsContext(context.Background(), claims)

	got, ok := auth.GetClaims(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims.UserID(), got.UserID())

	_, ok = auth.GetClaims(context.Background())
	assert.False(t, ok)
}

func TestGetRouterClaims(t *testing.T) {
	t.Run("reads claims from the configured key", func(t *testing.T) {
		claims := testClaims(uuid.New(), auth.RoleUser)
		ctx := &MockContext{}
		ctx.On("Locals", "jwt").Return(claims)

		got, ok := auth.GetRouterClaims(ctx, "jwt")
		assert.True(t, ok)
		assert.Equal(t, claims.UserID(), got.UserID())
	})

	t.Run("empty key falls back to user", func(t *testing.T) {
		claims := testClaims(uuid.New(), auth.RoleUser)
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(claims)

		_, ok := auth.GetRouterClaims(ctx, "")
		assert.True(t, ok)
	})

	t.Run("missing claims", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(nil)

		_, ok := auth.GetRouterClaims(ctx, "user")
		assert.False(t, ok)
	})

	t.Run("wrong type under the key", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return("not-claims")

		_, ok := auth.GetRouterClaims(ctx, "user")
		assert.False(t, ok)
	})
}

func TestGetRouterPrincipal(t *testing.T) {
	t.Run("builds the principal from claims", func(t *testing.T) {
		accountID := uuid.New()
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(testClaims(accountID, auth.RoleAdmin))

		principal, ok := auth.GetRouterPrincipal(ctx, "user")
		assert.True(t, ok)
		assert.Equal(t, accountID, principal.AccountID)
		assert.True(t, principal.HasRole(auth.RoleAdmin))
	})

	t.Run("claims with a malformed subject yield no principal", func(t *testing.T) {
		ctx := &MockContext{}
		ctx.On("Locals", "user").Return(&auth.JWTClaims{UID: "bogus"})

		_, ok := auth.GetRouterPrincipal(ctx, "user")
		assert.False(t, ok)
	})
}

func TestHasRoleFromRouter(t *testing.T) {
	ctx := &MockContext{}
	ctx.On("Locals", "user").Return(testClaims(uuid.New(), auth.RoleUser))

	assert.True(t, auth.HasRoleFromRouter(ctx, auth.RoleUser))
	assert.False(t, auth.HasRoleFromRouter(ctx, auth.RoleAdmin))

	empty := &MockContext{}
	empty.On("Locals", "user").Return(nil)
	assert.False(t, auth.HasRoleFromRouter(empty, auth.RoleUser))
}
