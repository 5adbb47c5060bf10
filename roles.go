package auth

// RoleName is the name of a seeded role
type RoleName = string

const (
	// RoleUser is the standard role every self-registered account receives
	RoleUser RoleName = "User"
	// RoleAdmin grants access to the user-administration operations
	RoleAdmin RoleName = "Admin"
)

// The model is deliberately flat: Admin does not inherit User, and an
// operation that requires User is closed to an account holding only Admin.
// Every grant is an explicit membership.

// IsValidRole checks if the name is one of the seeded roles
func IsValidRole(name string) bool {
	switch name {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// SeededRoles returns the closed role vocabulary with descriptions, in the
// order they are created at deployment.
func SeededRoles() []Role {
	return []Role{
		{Name: RoleAdmin, Description: "Administrator role with full access"},
		{Name: RoleUser, Description: "Standard user role"},
	}
}

// ParseRole safely validates a role name against the seeded vocabulary.
// String comparisons are exact and case sensitive; a typo fails closed.
func ParseRole(name string) (RoleName, bool) {
	return name, IsValidRole(name)
}

// ValidRoleNames filters names down to the seeded vocabulary, reporting the
// first offender when one falls outside it.
func ValidRoleNames(names []string) ([]string, string, bool) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !IsValidRole(n) {
			return nil, n, false
		}
		out = append(out, n)
	}
	return out, "", true
}
