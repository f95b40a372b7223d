// Package sqlite runs the catalog repository on an embedded SQLite database.
// It backs local development (STORE_DRIVER=sqlite) and the service tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite" // pure go sqlite driver
	sqlite3 "modernc.org/sqlite/lib"

	"pricing_catalog/internal/storage/sqlstore"
)

const upsertCitySQL = `
INSERT INTO cities (user_id, name, normalized_name)
VALUES (?, ?, ?)
ON CONFLICT (user_id, normalized_name) DO UPDATE SET
  name       = excluded.name,
  updated_at = CASE WHEN cities.name = excluded.name THEN cities.updated_at ELSE CURRENT_TIMESTAMP END
RETURNING id
`

type dialect struct{}

func (dialect) Name() string { return "sqlite" }

func (dialect) UpsertCity(ctx context.Context, q sqlstore.Querier, userID int64, name, normalized string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, upsertCitySQL, userID, name, normalized).Scan(&id)
	return id, err
}

// Write transactions start IMMEDIATE (see dsn), which already serializes them.
func (dialect) ForUpdate() string { return "" }

func (dialect) IsDuplicate(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// primary code only, when extended codes are off
		return strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

func (dialect) TxOptions() *sql.TxOptions { return nil }

func New(db *sql.DB) *sqlstore.Repo { return sqlstore.New(db, dialect{}) }

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database on one connection.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	memory := path == ":memory:"
	if path == "" {
		path = "pricing.db"
	}
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dsn(path, memory))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory {
		// every new connection to :memory: is a fresh empty database
		db.SetMaxOpenConns(1)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dsn(path string, memory bool) string {
	params := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if memory {
		return "file::memory:?" + params
	}
	return "file:" + path + "?" + params + "&_pragma=journal_mode(WAL)"
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
