package auth

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the role side of the credential store. The vocabulary is seeded
// and flat; this repository reads it and maintains account memberships, it
// never invents new role names.
type Roles interface {
	List(ctx context.Context) ([]*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	GetByNames(ctx context.Context, names []string) ([]*Role, error)
	GetByNamesTx(ctx context.Context, tx bun.IDB, names []string) ([]*Role, error)
	RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]*Role, error)

	AddMembershipTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, roleID int64) error
	ReplaceForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, roles []*Role) error
	DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error

	Seed(ctx context.Context, tx bun.IDB) error
}

type roles struct {
	db *bun.DB
}

var _ Roles = (*roles)(nil)

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) List(ctx context.Context) ([]*Role, error) {
	var records []*Role
	err := r.db.NewSelect().
		Model(&records).
		Order("id ASC").
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return records, nil
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	record := &Role{}
	err := r.db.NewSelect().
		Model(record).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUnknownRole.Clone().
				WithMetadata(map[string]any{"name": name})
		}
		return nil, err
	}

	return record, nil
}

func (r *roles) GetByNames(ctx context.Context, names []string) ([]*Role, error) {
	return r.GetByNamesTx(ctx, r.db, names)
}

// GetByNamesTx resolves role names to records. Any name missing from the
// seeded vocabulary fails the whole lookup; partial grants are worse than a
// rejected request.
func (r *roles) GetByNamesTx(ctx context.Context, tx bun.IDB, names []string) ([]*Role, error) {
	if len(names) == 0 {
		return []*Role{}, nil
	}

	var records []*Role
	err := tx.NewSelect().
		Model(&records).
		Where("name IN (?)", bun.In(names)).
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	if len(records) != len(names) {
		found := make(map[string]bool, len(records))
		for _, record := range records {
			found[record.Name] = true
		}

		missing := make([]string, 0, len(names))
		for _, name := range names {
			if !found[name] {
				missing = append(missing, name)
			}
		}

		return nil, ErrUnknownRole.Clone().
			WithMetadata(map[string]any{"names": missing})
	}

	return records, nil
}

func (r *roles) RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]*Role, error) {
	var records []*Role
	err := r.db.NewSelect().
		Model(&records).
		Join("JOIN account_roles AS ar ON ar.role_id = rol.id").
		Where("ar.account_id = ?", accountID).
		Order("rol.id ASC").
		Scan(ctx)

	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return records, nil
}

func (r *roles) AddMembershipTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, roleID int64) error {
	membership := &AccountRole{
		AccountID: accountID,
		RoleID:    roleID,
	}

	_, err := tx.NewInsert().
		Model(membership).
		On("CONFLICT DO NOTHING").
		Exec(ctx)

	return err
}

// ReplaceForAccountTx overwrites the account's memberships with exactly the
// given set. An empty set is legal and strips every role.
func (r *roles) ReplaceForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, replacement []*Role) error {
	if err := r.DeleteForAccountTx(ctx, tx, accountID); err != nil {
		return err
	}

	if len(replacement) == 0 {
		return nil
	}

	memberships := make([]*AccountRole, 0, len(replacement))
	for _, role := range replacement {
		memberships = append(memberships, &AccountRole{
			AccountID: accountID,
			RoleID:    role.ID,
		})
	}

	if _, err := tx.NewInsert().Model(&memberships).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to replace role memberships")
	}

	return nil
}

func (r *roles) DeleteForAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*AccountRole)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)

	return err
}

// Seed inserts the fixed role vocabulary, skipping names that already exist
// so repeated boots are harmless.
func (r *roles) Seed(ctx context.Context, tx bun.IDB) error {
	for _, role := range SeededRoles() {
		role := role
		_, err := tx.NewInsert().
			Model(&role).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to seed roles").
				WithMetadata(map[string]any{"role": role.Name})
		}
	}

	return nil
}
