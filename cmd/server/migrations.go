package main

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/studio-api/internal/platform/postgres"
)

// runMigrations executes a goose command against the embedded migrations.
func runMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	logger.Info("Executing migrations", "command", command)
	return postgres.Migrate(ctx, db, command, logger)
}
