// Package db stores schedules, their runs and scheduler statistics in
// SQLite. The schema is embedded and applied by tools/migrator.
package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/livinlefevreloca/hron/internal/db/migrations"
	"github.com/livinlefevreloca/hron/tools/migrator"
)

// DB is a schedule store backed by database/sql
type DB struct {
	*sql.DB
	driver string
}

// Tx is a store transaction; see WithTransaction
type Tx struct {
	*sql.Tx
	db *DB
}

// Config holds database connection configuration
type Config struct {
	Driver          string        `toml:"driver"`
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `toml:"conn_max_idle_time"`
	SkipMigrations  bool          `toml:"skip_migrations"`
}

// Standard errors
var (
	ErrNotFound   = errors.New("db: not found")
	ErrDuplicate  = errors.New("db: duplicate key")
	ErrForeignKey = errors.New("db: foreign key violation")
)

// Open connects and enables foreign keys. An in-memory SQLite database is
// limited to one connection, since each connection would open its own.
func Open(driver, dsn string) (*DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == "sqlite3" && strings.Contains(dsn, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if driver == "sqlite3" {
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &DB{DB: conn, driver: driver}, nil
}

// OpenWithConfig opens the store, applies the pool settings and, unless
// SkipMigrations is set, brings the schema up to date.
func OpenWithConfig(ctx context.Context, config Config, logger *slog.Logger) (*DB, error) {
	db, err := Open(config.Driver, config.DSN)
	if err != nil {
		return nil, err
	}
	db.configurePool(config)

	if !config.SkipMigrations {
		if _, err := db.Migrate(ctx, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func (db *DB) configurePool(config Config) {
	if config.MaxOpenConns > 0 && !strings.Contains(config.DSN, ":memory:") {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}
}

// Migrate applies the embedded migrations and returns the versions applied.
func (db *DB) Migrate(ctx context.Context, logger *slog.Logger) ([]int, error) {
	return migrator.New(db.DB, migrations.FS, logger).Up(ctx)
}

// Driver returns the database driver name
func (db *DB) Driver() string {
	return db.driver
}

// Begin starts a new transaction
func (db *DB) Begin() (*Tx, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, err
	}
	return &Tx{Tx: tx, db: db}, nil
}

// WithTransaction runs fn in a transaction, committing when it returns nil
// and rolling back when it fails or panics.
func (db *DB) WithTransaction(fn func(*Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// execer is satisfied by both *DB and *Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// mustAffect turns a zero-row update or delete into ErrNotFound.
func mustAffect(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Error classification
// =============================================================================

// IsNotFound reports whether err means the row does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}

// IsDuplicate reports whether err is a primary key or unique violation
func IsDuplicate(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	switch constraintCode(err) {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return true
	}
	return false
}

// IsForeignKey reports whether err is a foreign key violation
func IsForeignKey(err error) bool {
	if errors.Is(err, ErrForeignKey) {
		return true
	}
	return constraintCode(err) == sqlite3.ErrConstraintForeignKey
}

// constraintCode returns the extended code of a SQLite constraint
// violation anywhere in err's chain, or 0.
func constraintCode(err error) sqlite3.ErrNoExtended {
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
		return serr.ExtendedCode
	}
	return 0
}
