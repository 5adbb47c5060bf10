package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ensureTokenID gives every minted token a jti so audit trails can tell
// otherwise identical tokens apart.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

// parseAccountID parses an account id as carried in token subjects and route
// params.
func parseAccountID(identifier string) (uuid.UUID, error) {
	return uuid.Parse(identifier)
}
