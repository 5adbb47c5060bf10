package auth

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// RegisterModels registers the module's models with the persistence layer.
// The join table must be registered for the m2m relation to resolve.
func RegisterModels() {
	persistence.RegisterModel((*AccountRole)(nil))
	persistence.RegisterModel((*Account)(nil))
	persistence.RegisterModel((*Role)(nil))
}

// PersistenceConfig is persistence.Config plus the DSN accessor the sqlite
// shim needs to open the store.
type PersistenceConfig interface {
	persistence.Config
	GetDSN() string
}

// NewPersistenceClient opens the store described by cfg, registers models and
// migrations, and runs pending migrations.
func NewPersistenceClient(ctx context.Context, cfg PersistenceConfig) (*persistence.Client, error) {
	db, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		return nil, err
	}

	RegisterModels()

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}
	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client, nil
}

// RegisterBunModels registers the module's models on an already configured
// bun.DB. Tests and embedders that manage their own connection use this.
func RegisterBunModels(db *bun.DB) {
	db.RegisterModel((*AccountRole)(nil))
}
