package auth

// ClaimsDecorator can mutate allowed JWT claim extensions before a token is
// signed. Implementations may only touch extension fields (Scopes, Metadata)
// and must leave registered claims, the uid, and the role snapshot untouched
// so core auth semantics stay stable.
type ClaimsDecorator interface {
	Decorate(identity Identity, claims *JWTClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(identity Identity, claims *JWTClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(identity Identity, claims *JWTClaims) error {
	if f == nil {
		return nil
	}
	return f(identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(Identity, *JWTClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
