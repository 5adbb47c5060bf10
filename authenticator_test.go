package auth_test

import (
	"context"
	"testing"

	auth "github.com/archivista/archivista-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (auth.Identity, error) {
	args := m.Called(ctx, email, password)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByID(ctx context.Context, id string) (auth.Identity, error) {
	args := m.Called(ctx, id)
	identity, _ := args.Get(0).(auth.Identity)
	return identity, args.Error(1)
}

type staticIdentity struct {
	id    string
	roles []string
}

func (s staticIdentity) ID() string       { return s.id }
func (s staticIdentity) Username() string { return "alice" }
func (s staticIdentity) Email() string    { return "alice@example.com" }
func (s staticIdentity) Roles() []string  { return s.roles }

func testAuthConfig() *auth.SimpleConfig {
	cfg := auth.NewConfig("test-signing-key")
	cfg.Issuer = "archivista"
	cfg.Audience = []string{"archivista-api"}
	return cfg
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("verified identity gets a token", func(t *testing.T) {
		identity := staticIdentity{id: "user-1", roles: []string{auth.RoleUser}}

		provider := &MockIdentityProvider{}
		provider.On("VerifyIdentity", ctx, "alice@example.com", "secret").
			Return(identity, nil)

		auther := auth.NewAuthenticator(provider, testAuthConfig())
		token, err := auther.Login(ctx, "alice@example.com", "secret")

		assert.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := auther.ClaimsFromToken(token)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.True(t, claims.HasRole(auth.RoleUser))
		provider.AssertExpectations(t)
	})

	t.Run("verification failure surfaces unchanged", func(t *testing.T) {
		logger := &MockLogger{}
		logger.On("Error", mock.AnythingOfType("string"), mock.Anything).Return()

		provider := &MockIdentityProvider{}
		provider.On("VerifyIdentity", ctx, "alice@example.com", "wrong").
			Return(nil, auth.ErrInvalidCredentials)

		auther := auth.NewAuthenticator(provider, testAuthConfig()).WithLogger(logger)
		token, err := auther.Login(ctx, "alice@example.com", "wrong")

		assert.Empty(t, token)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("nil identity without error is still a credentials failure", func(t *testing.T) {
		logger := &MockLogger{}
		logger.On("Error", mock.AnythingOfType("string"), mock.Anything).Return()

		provider := &MockIdentityProvider{}
		provider.On("VerifyIdentity", ctx, "alice@example.com", "secret").
			Return(nil, nil)

		auther := auth.NewAuthenticator(provider, testAuthConfig()).WithLogger(logger)
		_, err := auther.Login(ctx, "alice@example.com", "secret")

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestAuther_ClaimsFromToken(t *testing.T) {
	logger := &MockLogger{}
	logger.On("Error", mock.AnythingOfType("string"), mock.Anything).Maybe()

	provider := &MockIdentityProvider{}
	auther := auth.NewAuthenticator(provider, testAuthConfig()).WithLogger(logger)

	t.Run("rejects garbage", func(t *testing.T) {
		claims, err := auther.ClaimsFromToken("garbage")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("custom validator takes precedence", func(t *testing.T) {
		custom := auth.TokenValidatorFunc(func(raw string) (auth.AuthClaims, error) {
			return &auth.JWTClaims{UID: "external-user"}, nil
		})

		claims, err := auther.WithTokenValidator(custom).ClaimsFromToken("anything")
		assert.NoError(t, err)
		assert.Equal(t, "external-user", claims.UserID())
	})
}

func TestAuther_IdentityFromClaims(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves through the provider", func(t *testing.T) {
		identity := staticIdentity{id: "user-1", roles: []string{auth.RoleAdmin}}

		provider := &MockIdentityProvider{}
		provider.On("FindIdentityByID", ctx, "user-1").Return(identity, nil)

		auther := auth.NewAuthenticator(provider, testAuthConfig())
		got, err := auther.IdentityFromClaims(ctx, &auth.JWTClaims{UID: "user-1"})

		assert.NoError(t, err)
		assert.Equal(t, "user-1", got.ID())
	})

	t.Run("deactivated or deleted accounts fail resolution", func(t *testing.T) {
		logger := &MockLogger{}
		logger.On("Error", mock.AnythingOfType("string"), mock.Anything).Return()

		provider := &MockIdentityProvider{}
		provider.On("FindIdentityByID", ctx, "user-gone").
			Return(nil, auth.ErrIdentityNotFound)

		auther := auth.NewAuthenticator(provider, testAuthConfig()).WithLogger(logger)
		_, err := auther.IdentityFromClaims(ctx, &auth.JWTClaims{UID: "user-gone"})

		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})
}
