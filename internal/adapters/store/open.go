// Package store opens the storage adapter selected by configuration.
package store

import (
	"context"

	"trustlens/internal/adapters/postgres"
	"trustlens/internal/adapters/sqlite"
	"trustlens/internal/config"
	"trustlens/internal/ports"
)

// Open connects to the configured store and applies migrations.
func Open(ctx context.Context, cfg config.Config) (ports.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
}
