//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// DefaultPasswordCost mirrors the non-race default so config validation stays
// consistent across build modes.
const DefaultPasswordCost = 13

func defaultPasswordCost() int {
	// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
	return bcrypt.DefaultCost
}
