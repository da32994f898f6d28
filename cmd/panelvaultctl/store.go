package main

import (
	"context"
	"fmt"
	"log/slog"

	sqliteadapter "github.com/ericfisherdev/panelvault/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/panelvault/internal/config"
)

// dbPath loads the optional .env file and returns the configured database path.
func dbPath() (string, error) {
	if err := config.LoadEnvFile(".env"); err != nil {
		return "", err
	}
	return config.DBPath(), nil
}

// openDB opens the database and brings its schema up to date.
func openDB(ctx context.Context, path string) (*sqliteadapter.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return db, nil
}
