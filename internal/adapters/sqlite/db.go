// Package sqlite is the single-file store used for development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"trustlens/internal/logging"
)

//go:embed migrations/*.sql
var migrations embed.FS

const Memory = ":memory:"

type DB struct {
	SQL *sql.DB
}

// Open opens the database at path, creating its directory. Memory opens a
// private in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_loc=UTC"
	if path == Memory {
		dsn = "file::memory:?_foreign_keys=on&_loc=UTC"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create data directory")
		}
		dsn += "&_journal_mode=WAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if path == Memory {
		// every connection would otherwise see its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return &DB{SQL: sqlDB}, nil
}

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(logging.GooseLogger{})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "set goose dialect")
	}
	if err := goose.UpContext(ctx, db.SQL, "migrations"); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

func (db *DB) Close() { db.SQL.Close() }
