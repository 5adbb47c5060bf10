package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	auth "github.com/archivista/archivista-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testDBCounter int64

func assertTextCode(t *testing.T, err error, textCode string) {
	t.Helper()

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, textCode, richErr.TextCode)
}

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:manager_test_%d?mode=memory&cache=shared",
		atomic.AddInt64(&testDBCounter, 1))

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	// a single connection serializes writers, so racing inserts resolve at
	// the unique constraint instead of SQLITE_BUSY
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	auth.RegisterBunModels(db)

	ctx := context.Background()
	for _, model := range []any{
		(*auth.Account)(nil),
		(*auth.Role)(nil),
		(*auth.AccountRole)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

func setupManager(t *testing.T) (*auth.AccountManager, auth.RepositoryManager) {
	t.Helper()

	db := setupTestDB(t)
	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	tokenService := auth.NewTokenService([]byte("manager-test-key"), 1, "archivista", nil, nil)
	manager := auth.NewAccountManager(repo, tokenService)

	require.NoError(t, manager.Seed(context.Background(), nil))

	return manager, repo
}

func TestAccountManager_Register(t *testing.T) {
	ctx := context.Background()
	manager, repo := setupManager(t)

	t.Run("creates the account with the default user role", func(t *testing.T) {
		result, err := manager.Register(ctx, auth.RegisterInput{
			Username:  "alice",
			Email:     "alice@example.com",
			Password:  "secret123",
			FirstName: "Alice",
			LastName:  "Archivist",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, "alice", result.Username)
		assert.Equal(t, "alice@example.com", result.Email)
		assert.Equal(t, []string{auth.RoleUser}, result.Roles)
		assert.Equal(t, int64(3600), result.ExpiresIn)

		id, err := uuid.Parse(result.AccountID)
		require.NoError(t, err)

		stored, err := repo.Accounts().GetWithRoles(ctx, id)
		require.NoError(t, err)
		assert.True(t, stored.IsActive)
		assert.True(t, stored.HasRole(auth.RoleUser))
		assert.False(t, stored.HasRole(auth.RoleAdmin))
	})

	t.Run("username defaults to the email local part", func(t *testing.T) {
		result, err := manager.Register(ctx, auth.RegisterInput{
			Email:    "bob@example.com",
			Password: "secret123",
		})

		require.NoError(t, err)
		assert.Equal(t, "bob", result.Username)
	})

	t.Run("duplicate email is a generic conflict", func(t *testing.T) {
		_, err := manager.Register(ctx, auth.RegisterInput{
			Username: "alice-two",
			Email:    "alice@example.com",
			Password: "secret123",
		})

		assert.ErrorIs(t, err, auth.ErrAccountExists)
	})

	t.Run("duplicate username is the same generic conflict", func(t *testing.T) {
		_, err := manager.Register(ctx, auth.RegisterInput{
			Username: "alice",
			Email:    "alice-other@example.com",
			Password: "secret123",
		})

		// the register surface must not reveal which field collided
		assert.ErrorIs(t, err, auth.ErrAccountExists)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := manager.Register(ctx, auth.RegisterInput{
			Username: "carol",
			Email:    "carol@example.com",
		})

		assert.Error(t, err)
	})

	t.Run("honors the caller's context", func(t *testing.T) {
		// cancellation is the caller's to decide; no deadline is imposed here
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := manager.Register(canceled, auth.RegisterInput{
			Username: "dave",
			Email:    "dave@example.com",
			Password: "secret123",
		})
		assert.Error(t, err)

		// the aborted transaction left nothing behind
		_, err = manager.Login(ctx, "dave@example.com", "secret123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestAccountManager_RegisterRace(t *testing.T) {
	ctx := context.Background()
	manager, _ := setupManager(t)

	// two registrations race on the same email; the store's unique
	// constraint guarantees exactly one wins
	const racers = 2

	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = manager.Register(ctx, auth.RegisterInput{
				Username: fmt.Sprintf("racer-%d", i),
				Email:    "raced@example.com",
				Password: "secret123",
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, auth.ErrAccountExists)
		}
	}
	assert.Equal(t, 1, winners)

	accounts, err := manager.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestAccountManager_Login(t *testing.T) {
	ctx := context.Background()
	manager, repo := setupManager(t)

	registered, err := manager.Register(ctx, auth.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		result, err := manager.Login(ctx, "alice@example.com", "secret123")

		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, registered.AccountID, result.AccountID)
		assert.Equal(t, []string{auth.RoleUser}, result.Roles)

		id, err := uuid.Parse(result.AccountID)
		require.NoError(t, err)
		stored, err := repo.Accounts().GetWithRoles(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := manager.Login(ctx, "alice@example.com", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email gives the identical error", func(t *testing.T) {
		_, err := manager.Login(ctx, "ghost@example.com", "secret123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		id, err := uuid.Parse(registered.AccountID)
		require.NoError(t, err)

		_, err = manager.SetActive(ctx, id, false)
		require.NoError(t, err)

		_, err = manager.Login(ctx, "alice@example.com", "secret123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		// reactivation restores access
		_, err = manager.SetActive(ctx, id, true)
		require.NoError(t, err)

		_, err = manager.Login(ctx, "alice@example.com", "secret123")
		assert.NoError(t, err)
	})
}

func TestAccountManager_CreateAccount(t *testing.T) {
	ctx := context.Background()
	manager, _ := setupManager(t)

	t.Run("admin picks the role set", func(t *testing.T) {
		account, err := manager.CreateAccount(ctx, auth.CreateAccountInput{
			Username: "curator",
			Email:    "curator@example.com",
			Password: "secret123",
			Roles:    []string{auth.RoleAdmin, auth.RoleUser},
		})

		require.NoError(t, err)
		assert.True(t, account.IsActive)
		assert.True(t, account.HasRole(auth.RoleAdmin))
		assert.True(t, account.HasRole(auth.RoleUser))
	})

	t.Run("empty role set is legal", func(t *testing.T) {
		account, err := manager.CreateAccount(ctx, auth.CreateAccountInput{
			Username: "norole",
			Email:    "norole@example.com",
			Password: "secret123",
		})

		require.NoError(t, err)
		assert.Empty(t, account.RoleNames())
	})

	t.Run("can create deactivated", func(t *testing.T) {
		inactive := false
		account, err := manager.CreateAccount(ctx, auth.CreateAccountInput{
			Username: "parked",
			Email:    "parked@example.com",
			Password: "secret123",
			IsActive: &inactive,
		})

		require.NoError(t, err)
		assert.False(t, account.IsActive)

		_, err = manager.Login(ctx, "parked@example.com", "secret123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown role rejects the whole request", func(t *testing.T) {
		_, err := manager.CreateAccount(ctx, auth.CreateAccountInput{
			Username: "bad",
			Email:    "bad@example.com",
			Password: "secret123",
			Roles:    []string{"Curator"},
		})

		assertTextCode(t, err, auth.TextCodeUnknownRole)
	})
}

func TestAccountManager_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	manager, _ := setupManager(t)

	alice, err := manager.Register(ctx, auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	_, err = manager.Register(ctx, auth.RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	aliceID, err := uuid.Parse(alice.AccountID)
	require.NoError(t, err)

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		first := "Alice"
		account, err := manager.UpdateProfile(ctx, aliceID, auth.UpdateProfileInput{
			FirstName: &first,
		})

		require.NoError(t, err)
		assert.Equal(t, "Alice", account.FirstName)
		assert.Equal(t, "alice", account.Username)
		assert.Equal(t, "alice@example.com", account.Email)
		assert.True(t, account.HasRole(auth.RoleUser))

		// credentials still work after the update
		_, err = manager.Login(ctx, "alice@example.com", "secret123")
		assert.NoError(t, err)
	})

	t.Run("taken username names the field", func(t *testing.T) {
		taken := "bob"
		_, err := manager.UpdateProfile(ctx, aliceID, auth.UpdateProfileInput{
			Username: &taken,
		})

		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("taken email names the field", func(t *testing.T) {
		taken := "bob@example.com"
		_, err := manager.UpdateProfile(ctx, aliceID, auth.UpdateProfileInput{
			Email: &taken,
		})

		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("keeping your own values is not a conflict", func(t *testing.T) {
		same := "alice"
		account, err := manager.UpdateProfile(ctx, aliceID, auth.UpdateProfileInput{
			Username: &same,
		})

		require.NoError(t, err)
		assert.Equal(t, "alice", account.Username)
	})

	t.Run("unknown account", func(t *testing.T) {
		first := "Ghost"
		_, err := manager.UpdateProfile(ctx, uuid.New(), auth.UpdateProfileInput{
			FirstName: &first,
		})

		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func TestAccountManager_ReplaceRoles(t *testing.T) {
	ctx := context.Background()
	manager, _ := setupManager(t)

	alice, err := manager.Register(ctx, auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	aliceID, err := uuid.Parse(alice.AccountID)
	require.NoError(t, err)

	t.Run("replaces the whole membership set", func(t *testing.T) {
		account, err := manager.ReplaceRoles(ctx, aliceID, []string{auth.RoleAdmin})

		require.NoError(t, err)
		assert.True(t, account.HasRole(auth.RoleAdmin))
		// flat model: the old User membership is gone, not implied
		assert.False(t, account.HasRole(auth.RoleUser))
	})

	t.Run("new logins see the new snapshot", func(t *testing.T) {
		result, err := manager.Login(ctx, "alice@example.com", "secret123")

		require.NoError(t, err)
		assert.Equal(t, []string{auth.RoleAdmin}, result.Roles)
	})

	t.Run("empty set strips every role", func(t *testing.T) {
		account, err := manager.ReplaceRoles(ctx, aliceID, []string{})

		require.NoError(t, err)
		assert.Empty(t, account.RoleNames())
	})

	t.Run("unknown role name rejects the request", func(t *testing.T) {
		_, err := manager.ReplaceRoles(ctx, aliceID, []string{auth.RoleUser, "Visitor"})
		assertTextCode(t, err, auth.TextCodeUnknownRole)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := manager.ReplaceRoles(ctx, uuid.New(), []string{auth.RoleUser})
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func TestAccountManager_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	manager, repo := setupManager(t)

	alice, err := manager.Register(ctx, auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	aliceID, err := uuid.Parse(alice.AccountID)
	require.NoError(t, err)

	t.Run("removes the account and its memberships", func(t *testing.T) {
		require.NoError(t, manager.DeleteAccount(ctx, aliceID))

		_, err := manager.GetAccount(ctx, aliceID)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)

		roles, err := repo.Roles().RolesForAccount(ctx, aliceID)
		require.NoError(t, err)
		assert.Empty(t, roles)
	})

	t.Run("deleting twice is not found", func(t *testing.T) {
		err := manager.DeleteAccount(ctx, aliceID)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})

	t.Run("the email becomes available again", func(t *testing.T) {
		_, err := manager.Register(ctx, auth.RegisterInput{
			Username: "alice", Email: "alice@example.com", Password: "secret123",
		})
		assert.NoError(t, err)
	})
}

func TestAccountManager_SetActive(t *testing.T) {
	ctx := context.Background()
	manager, _ := setupManager(t)

	t.Run("unknown account", func(t *testing.T) {
		_, err := manager.SetActive(ctx, uuid.New(), false)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func TestAccountManager_Seed(t *testing.T) {
	ctx := context.Background()
	manager, repo := setupManager(t)

	admin := &auth.AdminSeed{
		Username: "admin",
		Email:    "admin@example.com",
		Password: "admin-secret",
	}

	require.NoError(t, manager.Seed(ctx, admin))

	t.Run("role vocabulary is installed", func(t *testing.T) {
		roles, err := repo.Roles().List(ctx)
		require.NoError(t, err)
		assert.Len(t, roles, 2)
	})

	t.Run("admin account holds only the admin role", func(t *testing.T) {
		result, err := manager.Login(ctx, "admin@example.com", "admin-secret")

		require.NoError(t, err)
		assert.Equal(t, []string{auth.RoleAdmin}, result.Roles)
	})

	t.Run("reseeding is idempotent", func(t *testing.T) {
		require.NoError(t, manager.Seed(ctx, admin))

		accounts, err := manager.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)

		roles, err := repo.Roles().List(ctx)
		require.NoError(t, err)
		assert.Len(t, roles, 2)
	})
}

func TestAccountManager_GetAndList(t *testing.T) {
	ctx := context.Background()
	manager, _ := setupManager(t)

	t.Run("empty store lists nothing", func(t *testing.T) {
		accounts, err := manager.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Empty(t, accounts)
	})

	_, err := manager.Register(ctx, auth.RegisterInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	_, err = manager.Register(ctx, auth.RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	t.Run("lists every account with roles loaded", func(t *testing.T) {
		accounts, err := manager.ListAccounts(ctx)

		require.NoError(t, err)
		require.Len(t, accounts, 2)
		for _, account := range accounts {
			assert.True(t, account.HasRole(auth.RoleUser))
		}
	})
}

func TestAccountManager_RegisterWithHashid(t *testing.T) {
	ctx := context.Background()
	manager, _ := setupManager(t)

	result, err := manager.Register(ctx, auth.RegisterInput{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret123",
		UseHashid: true,
	})
	require.NoError(t, err)

	// deterministic: the id derives from the email
	id, err := uuid.Parse(result.AccountID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	require.NoError(t, manager.DeleteAccount(ctx, id))

	again, err := manager.Register(ctx, auth.RegisterInput{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret123",
		UseHashid: true,
	})
	require.NoError(t, err)
	assert.Equal(t, result.AccountID, again.AccountID)
}
