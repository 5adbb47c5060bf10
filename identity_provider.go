package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// AccountLookup is the slice of the credential store the provider needs to
// verify identities.
type AccountLookup interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetWithRoles(ctx context.Context, id uuid.UUID) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

// AccountProvider resolves and verifies identities against the credential
// store.
type AccountProvider struct {
	store  AccountLookup
	logger Logger
}

var _ IdentityProvider = (*AccountProvider)(nil)

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountLookup) *AccountProvider {
	return &AccountProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

// VerifyIdentity finds the account by email, compares the password, and
// returns the identity. Unknown email, wrong password, and deactivated
// account all surface as the same credentials error; the miss path still pays
// for a hash comparison so response timing does not leak which case it was.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			_ = ComparePasswordAndHash(password, RandomPasswordHash())
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !account.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := p.store.TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	return identityFromAccount(account), nil
}

// FindIdentityByID resolves an identity from an account id, as carried in a
// token subject. Deactivation takes effect here for already issued tokens.
func (p *AccountProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	accountID, err := parseAccountID(id)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	account, err := p.store.GetWithRoles(ctx, accountID)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account by id")
	}

	if !account.IsActive {
		return nil, ErrIdentityNotFound
	}

	return identityFromAccount(account), nil
}
