package auth

import "embed"

// The schema migrations ship inside the binary so deployments never depend on
// a data directory being present next to it.
//
//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the embedded account and role schema migrations for
// callers that run their own persistence bootstrap; NewPersistenceClient feeds
// them to the migrator in the default wiring.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
