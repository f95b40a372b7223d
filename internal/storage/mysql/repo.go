package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"

	"pricing_catalog/internal/storage/sqlstore"
)

// erDupEntry is MySQL's "Duplicate entry for key" error number.
const erDupEntry = 1062

type dialect struct{}

func (dialect) Name() string { return "mysql" }

func (dialect) UpsertCity(ctx context.Context, q sqlstore.Querier, userID int64, name, normalized string) (int64, error) {
	res, err := q.ExecContext(ctx, upsertCitySQL, userID, name, normalized)
	if err != nil {
		return 0, err
	}
	// LAST_INSERT_ID(id) in the update clause makes this the existing id on a hit.
	return res.LastInsertId()
}

func (dialect) ForUpdate() string { return " FOR UPDATE" }

func (dialect) IsDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == erDupEntry
}

func (dialect) TxOptions() *sql.TxOptions { return nil }

func New(db *sql.DB) *sqlstore.Repo { return sqlstore.New(db, dialect{}) }

// Open parses dsn and forces the options the repository depends on:
// parseTime for DATE columns and clientFoundRows so an UPDATE that matches a
// row without changing it still reports one affected row.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	conn, err := mysqldrv.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return sql.OpenDB(conn), nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
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
