package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/aviraln/nudge/migrations"
)

// migrationTableName records applied migrations.
const migrationTableName = "schema_migrations"

// runMigrations applies any pending schema migrations from the
// embedded migration files.
func runMigrations(db *sql.DB, logger *slog.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(migrationTableName)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		logger.Warn("Failed to read migration version", "error", err)
		return nil
	}

	logger.Info("Database schema up to date", "version", version)
	return nil
}
