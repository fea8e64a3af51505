package sqlite

import (
	"context"
	"embed"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/zeebo/errs"
	"gorm.io/gorm"
)

// MigrationError is the class of schema migration failures.
var MigrationError = errs.Class("migration")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the schema up to the newest embedded version. It is
// safe to call on every start.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return MigrationError.Wrap(err)
	}
	scripts, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return MigrationError.Wrap(err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, scripts)
	if err != nil {
		return MigrationError.Wrap(err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return MigrationError.Wrap(err)
	}
	return nil
}
