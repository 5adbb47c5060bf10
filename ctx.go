package auth

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

var principalCtxKey = &contextKey{"principal"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// AuthenticatedPrincipal is the caller as established by a validated token:
// an account id plus the role snapshot the token was issued with.
type AuthenticatedPrincipal struct {
	AccountID uuid.UUID
	Username  string
	Roles     []string
}

// HasRole checks the principal's token-snapshot roles. Exact, case-sensitive
// match, no hierarchy.
func (p AuthenticatedPrincipal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// WithPrincipalContext sets the AuthenticatedPrincipal in the given context
func WithPrincipalContext(r context.Context, principal AuthenticatedPrincipal) context.Context {
	return context.WithValue(r, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (AuthenticatedPrincipal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(AuthenticatedPrincipal)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user" // Default key used by JWT middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// GetRouterPrincipal builds the principal from the claims the JWT middleware
// stored on the router context.
func GetRouterPrincipal(ctx router.Context, key string) (AuthenticatedPrincipal, bool) {
	claims, ok := GetRouterClaims(ctx, key)
	if !ok {
		return AuthenticatedPrincipal{}, false
	}
	return principalFromClaims(claims)
}

// HasRoleFromRouter is a convenience check against the token's role snapshot
// directly from the router context.
func HasRoleFromRouter(ctx router.Context, role string) bool {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return false
	}
	return claims.HasRole(role)
}

func principalFromClaims(claims AuthClaims) (AuthenticatedPrincipal, bool) {
	id, err := parseAccountID(claims.UserID())
	if err != nil {
		return AuthenticatedPrincipal{}, false
	}

	return AuthenticatedPrincipal{
		AccountID: id,
		Roles:     claims.Roles(),
	}, true
}
