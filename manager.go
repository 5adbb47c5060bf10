package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuthResult is the wire payload returned by login and registration.
type AuthResult struct {
	Token     string   `json:"token"`
	AccountID string   `json:"account_id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	ExpiresIn int64    `json:"expires_in"`
}

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// UseHashid derives the account id deterministically from the email,
	// which keeps ids stable across environment rebuilds.
	UseHashid bool `json:"-"`
}

// CreateAccountInput carries an administrative account creation. Unlike
// registration the caller picks the role set and active flag.
type CreateAccountInput struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
	IsActive  *bool    `json:"is_active"`
}

// UpdateProfileInput carries a partial profile update; nil fields are left
// untouched.
type UpdateProfileInput struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// AdminSeed describes the bootstrap administrator account created at
// deployment when no account holds that email yet.
type AdminSeed struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AccountManager drives the account lifecycle: registration, login,
// administrative CRUD, role grants, and activation.
type AccountManager struct {
	repo         RepositoryManager
	tokenService TokenService
	logger       Logger
	activity     ActivitySink
}

// NewAccountManager creates an AccountManager backed by the given
// repositories and token service.
func NewAccountManager(repo RepositoryManager, tokenService TokenService) *AccountManager {
	return &AccountManager{
		repo:         repo,
		tokenService: tokenService,
		logger:       defLogger{},
		activity:     noopActivitySink{},
	}
}

func (m *AccountManager) WithLogger(logger Logger) *AccountManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithActivitySink routes lifecycle audit events to the given sink.
func (m *AccountManager) WithActivitySink(sink ActivitySink) *AccountManager {
	m.activity = normalizeActivitySink(sink)
	return m
}

// recordActivity emits an audit event. Sink failures are logged, never
// surfaced: auditing must not break the operation it observes.
func (m *AccountManager) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := m.activity.Record(ctx, event); err != nil {
		m.logger.Error("activity sink rejected event", "event", string(event.EventType), "error", err)
	}
}

// Register creates an account with the default User role and logs it in. The
// store's unique constraints are the authority on collisions: any conflict,
// whichever field raced, comes back as the same generic error so the endpoint
// cannot be used to probe which emails are registered.
func (m *AccountManager) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	hash, err := HashPassword(input.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	account := &Account{
		Username:     getUsername(input.Username, input.Email),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsActive:     true,
	}

	if input.UseHashid {
		if id, err := hashid.NewUUID(input.Email); err == nil {
			account.ID = id
		}
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := m.repo.Accounts().CreateTx(ctx, tx, account)
		if err != nil {
			return err
		}
		account = created

		userRole, err := m.repo.Roles().GetByNamesTx(ctx, tx, []string{RoleUser})
		if err != nil {
			return err
		}

		return m.repo.Roles().AddMembershipTx(ctx, tx, account.ID, userRole[0].ID)
	})

	if err != nil {
		if IsConflictError(err) {
			return nil, ErrAccountExists
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	account.Roles = []*Role{{Name: RoleUser}}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		AccountID: account.ID.String(),
		Email:     account.Email,
	})

	return m.authResult(account)
}

// Login verifies credentials and returns a fresh token. The role claims in
// the result snapshot the memberships at this instant.
func (m *AccountManager) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	provider := NewAccountProvider(m.repo.Accounts()).WithLogger(m.logger)

	identity, err := provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		if goerrors.Is(err, ErrInvalidCredentials) {
			m.recordActivity(ctx, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Email:     email,
			})
		}
		return nil, err
	}

	token, err := m.tokenService.Generate(identity)
	if err != nil {
		return nil, err
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: identity.ID(),
		Email:     identity.Email(),
	})

	roles := identity.Roles()
	if roles == nil {
		roles = []string{}
	}

	return &AuthResult{
		Token:     token,
		AccountID: identity.ID(),
		Username:  identity.Username(),
		Email:     identity.Email(),
		Roles:     roles,
		ExpiresIn: m.tokenService.ExpiresInSeconds(),
	}, nil
}

// CreateAccount is the administrative creation path. The caller picks the
// role set; an empty set is legal and leaves the account unable to pass any
// role gate.
func (m *AccountManager) CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error) {
	if _, offender, ok := ValidRoleNames(input.Roles); !ok {
		return nil, ErrUnknownRole.Clone().
			WithMetadata(map[string]any{"name": offender})
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	account := &Account{
		Username:     getUsername(input.Username, input.Email),
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsActive:     active,
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := m.repo.Accounts().CreateTx(ctx, tx, account)
		if err != nil {
			return err
		}
		account = created

		roles, err := m.repo.Roles().GetByNamesTx(ctx, tx, input.Roles)
		if err != nil {
			return err
		}

		return m.repo.Roles().ReplaceForAccountTx(ctx, tx, account.ID, roles)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account creation transaction failed")
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountCreated,
		AccountID: account.ID.String(),
		Email:     account.Email,
		Metadata:  map[string]any{"roles": input.Roles, "active": active},
	})

	return m.repo.Accounts().GetWithRoles(ctx, account.ID)
}

// GetAccount fetches a single account with its role memberships.
func (m *AccountManager) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	account, err := m.repo.Accounts().GetWithRoles(ctx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns every account with roles loaded.
func (m *AccountManager) ListAccounts(ctx context.Context) ([]*Account, error) {
	return m.repo.Accounts().ListWithRoles(ctx)
}

// UpdateProfile applies a partial update to an account's identity fields.
// Conflicts here name the colliding field: the caller is already
// authenticated, so the enumeration concern of registration does not apply.
func (m *AccountManager) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*Account, error) {
	account, err := m.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Username != nil && *input.Username != account.Username {
		if other, err := m.repo.Accounts().GetByUsername(ctx, *input.Username); err == nil && other.ID != id {
			return nil, ErrUsernameTaken
		}
		account.Username = *input.Username
	}

	if input.Email != nil && *input.Email != account.Email {
		if other, err := m.repo.Accounts().GetByEmail(ctx, *input.Email); err == nil && other.ID != id {
			return nil, ErrEmailTaken
		}
		account.Email = *input.Email
	}

	if input.FirstName != nil {
		account.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		account.LastName = *input.LastName
	}

	record := &Account{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
	}

	_, err = m.repo.Accounts().Update(ctx, record, repository.UpdateByID(id.String()))
	if err != nil {
		// A concurrent update can slip past the pre-checks; the constraint
		// rejection still names the field.
		if IsUniqueViolation(err) {
			return nil, conflictFromUniqueViolation(err)
		}
		return nil, err
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		AccountID: id.String(),
		Email:     account.Email,
		Metadata:  map[string]any{"fields": changedProfileFields(input)},
	})

	return m.GetAccount(ctx, id)
}

// changedProfileFields names the fields a partial update touched, for the
// audit trail. Values stay out of the event; emails and names are PII.
func changedProfileFields(input UpdateProfileInput) []string {
	fields := []string{}
	if input.Username != nil {
		fields = append(fields, "username")
	}
	if input.Email != nil {
		fields = append(fields, "email")
	}
	if input.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if input.LastName != nil {
		fields = append(fields, "last_name")
	}
	return fields
}

// ReplaceRoles overwrites the account's memberships with exactly the given
// set. Names outside the seeded vocabulary reject the whole request; an
// empty set is legal and strips every role. Outstanding tokens keep their
// issued snapshot until they expire.
func (m *AccountManager) ReplaceRoles(ctx context.Context, id uuid.UUID, names []string) (*Account, error) {
	if _, offender, ok := ValidRoleNames(names); !ok {
		return nil, ErrUnknownRole.Clone().
			WithMetadata(map[string]any{"name": offender})
	}

	if _, err := m.GetAccount(ctx, id); err != nil {
		return nil, err
	}

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		roles, err := m.repo.Roles().GetByNamesTx(ctx, tx, names)
		if err != nil {
			return err
		}
		return m.repo.Roles().ReplaceForAccountTx(ctx, tx, id, roles)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "role replacement transaction failed")
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRolesReplaced,
		AccountID: id.String(),
		Metadata:  map[string]any{"roles": names},
	})

	return m.GetAccount(ctx, id)
}

// SetActive flips the account's active flag. Deactivation blocks new logins
// immediately; tokens already issued remain valid until expiry.
func (m *AccountManager) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error) {
	account, err := m.repo.Accounts().SetActive(ctx, id, active)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventStatusChanged,
		AccountID: id.String(),
		Email:     account.Email,
		Metadata:  map[string]any{"active": active},
	})

	return account, nil
}

// DeleteAccount removes the account and its role memberships.
func (m *AccountManager) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := m.repo.Roles().DeleteForAccountTx(ctx, tx, id); err != nil {
			return err
		}

		rows, err := m.repo.Accounts().DeleteByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if rows == 0 {
			return ErrAccountNotFound
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account deletion transaction failed")
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		AccountID: id.String(),
	})

	return nil
}

// Seed installs the role vocabulary and, when given, the bootstrap admin
// account. Safe to run on every boot.
func (m *AccountManager) Seed(ctx context.Context, admin *AdminSeed) error {
	return m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := m.repo.Roles().Seed(ctx, tx); err != nil {
			return err
		}

		if admin == nil {
			return nil
		}

		if _, err := m.repo.Accounts().GetByEmailTx(ctx, tx, admin.Email); err == nil {
			return nil
		} else if !repository.IsRecordNotFound(err) {
			return err
		}

		hash, err := HashPassword(admin.Password)
		if err != nil {
			return err
		}

		account, err := m.repo.Accounts().CreateTx(ctx, tx, &Account{
			Username:     getUsername(admin.Username, admin.Email),
			Email:        admin.Email,
			PasswordHash: hash,
			FirstName:    admin.FirstName,
			LastName:     admin.LastName,
			IsActive:     true,
		})
		if err != nil {
			return err
		}

		roles, err := m.repo.Roles().GetByNamesTx(ctx, tx, []string{RoleAdmin})
		if err != nil {
			return err
		}

		return m.repo.Roles().ReplaceForAccountTx(ctx, tx, account.ID, roles)
	})
}

func (m *AccountManager) authResult(account *Account) (*AuthResult, error) {
	identity := identityFromAccount(account)

	token, err := m.tokenService.Generate(identity)
	if err != nil {
		m.logger.Error("failed to generate token after registration", "error", err)
		return nil, err
	}

	roles := account.RoleNames()
	if roles == nil {
		roles = []string{}
	}

	return &AuthResult{
		Token:     token,
		AccountID: account.ID.String(),
		Username:  account.Username,
		Email:     account.Email,
		Roles:     roles,
		ExpiresIn: m.tokenService.ExpiresInSeconds(),
	}, nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
