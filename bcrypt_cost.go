//go:build !race

package auth

// DefaultPasswordCost keeps interactive logins in the hundreds of
// milliseconds while staying expensive for offline brute force.
const DefaultPasswordCost = 13

func defaultPasswordCost() int {
	return DefaultPasswordCost
}
