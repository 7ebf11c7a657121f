package identity

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// GetFixturesFS returns the seed fixtures for this package. The admin profile
// ships as a fixture because the admin role is never self-assignable.
func GetFixturesFS() embed.FS {
	return fixturesFS
}
