package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is a principal able to authenticate. Username and email carry
// unique constraints in the store; racing inserts are resolved there, not by
// application pre-checks.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	IsActive      bool       `bun:"is_active,notnull,default:true" json:"is_active"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	Roles         []*Role    `bun:"m2m:account_roles,join:Account=Role" json:"roles,omitempty"`
}

// RoleNames projects the loaded memberships as plain names.
func (a *Account) RoleNames() []string {
	if a == nil || len(a.Roles) == 0 {
		return nil
	}
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		if r != nil {
			names = append(names, r.Name)
		}
	}
	return names
}

// HasRole reports whether the account holds the named role. Exact,
// case-sensitive match.
func (a *Account) HasRole(name string) bool {
	for _, r := range a.Roles {
		if r != nil && r.Name == name {
			return true
		}
	}
	return false
}

// Role is a named permission bucket. The set is seeded at deployment and
// treated as immutable; Description is informational only.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Name          string `bun:"name,notnull,unique" json:"name,omitempty"`
	Description   string `bun:"description" json:"description,omitempty"`
}

// AccountRole is the account-to-role membership join. Deleting an account or
// a role cascades through this table.
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:acr"`
	AccountID     uuid.UUID `bun:"account_id,pk,type:uuid" json:"account_id,omitempty"`
	Account       *Account  `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	RoleID        int64     `bun:"role_id,pk" json:"role_id,omitempty"`
	Role          *Role     `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

// PublicProfile is the account projection safe to put on the wire; it never
// includes the password hash.
type PublicProfile struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	Roles       []string   `json:"roles"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Profile builds the wire-safe projection of an account.
func (a *Account) Profile() PublicProfile {
	roles := a.RoleNames()
	if roles == nil {
		roles = []string{}
	}
	return PublicProfile{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		IsActive:    a.IsActive,
		Roles:       roles,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
