// Package storage picks the repository backend named by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pricing_catalog/internal/shared"
	"pricing_catalog/internal/storage/mysql"
	"pricing_catalog/internal/storage/sqlite"
	"pricing_catalog/internal/storage/sqlstore"
)

// Open connects to the configured store. The SQLite schema is always applied;
// MySQL is migrated only with AUTO_MIGRATE.
func Open(ctx context.Context, cfg shared.Config) (*sql.DB, *sqlstore.Repo, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return db, sqlite.New(db), nil

	case "mysql":
		db, err := mysql.Open(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql ping: %w", err)
		}
		if cfg.AutoMigrate {
			if err := mysql.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
			log.Info().Msg("mysql schema applied")
		}
		log.Info().Msg("database connection ok")
		return db, mysql.New(db), nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
