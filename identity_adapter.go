package auth

// authIdentity is the Identity the credential store hands to the token layer.
// It snapshots the account's fields so later account mutations do not leak
// into tokens already being minted.
type authIdentity struct {
	id       string
	username string
	email    string
	roles    []string
}

var _ Identity = authIdentity{}

// NewIdentityFromAccount adapts an account into the Identity interface for
// token generation. Returns nil for a nil account.
func NewIdentityFromAccount(account *Account) Identity {
	if account == nil {
		return nil
	}
	return identityFromAccount(account)
}

func identityFromAccount(account *Account) authIdentity {
	return authIdentity{
		id:       account.ID.String(),
		username: account.Username,
		email:    account.Email,
		roles:    account.RoleNames(),
	}
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Username() string {
	return a.username
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Roles() []string {
	return a.roles
}
