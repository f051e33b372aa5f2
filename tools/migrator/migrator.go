// Package migrator applies versioned SQL migrations from an fs.FS, usually
// an embedded directory, and records them in a schema_migrations table.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
)

// Migrator applies the migrations found in a filesystem to a database.
type Migrator struct {
	db     *sql.DB
	fsys   fs.FS
	logger *slog.Logger
}

// New creates a Migrator. A nil logger discards output.
func New(db *sql.DB, fsys fs.FS, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Migrator{db: db, fsys: fsys, logger: logger}
}

// Up applies every pending migration in version order and returns the
// versions it applied.
func (m *Migrator) Up(ctx context.Context) ([]int, error) {
	if err := m.createSchemaTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create schema table: %w", err)
	}

	migrations, err := Load(m.fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending, err := pendingMigrations(migrations, applied)
	if err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied)+len(pending))
	for _, v := range applied {
		done[v] = true
	}

	var versions []int
	for _, migration := range pending {
		for _, dep := range migration.Dependencies {
			if !done[dep] {
				return versions, fmt.Errorf("migration %d depends on version %d which has not been applied", migration.Version, dep)
			}
		}
		if err := m.apply(ctx, migration); err != nil {
			return versions, fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
		m.logger.Info("applied migration", "version", migration.Version, "name", migration.Name)
		done[migration.Version] = true
		versions = append(versions, migration.Version)
	}
	return versions, nil
}

// pendingMigrations returns the migrations not yet applied. A pending
// migration older than the newest applied one means history diverged.
func pendingMigrations(migrations []Migration, applied []int) ([]Migration, error) {
	maxApplied := 0
	if len(applied) > 0 {
		maxApplied = slices.Max(applied)
	}

	var pending []Migration
	for _, mig := range migrations {
		if slices.Contains(applied, mig.Version) {
			continue
		}
		if mig.Version < maxApplied {
			return nil, fmt.Errorf("cannot apply migration %d: version %d is already applied (migrations must be applied in order)", mig.Version, maxApplied)
		}
		pending = append(pending, mig)
	}
	return pending, nil
}

// Applied returns the applied versions in ascending order. A database
// without the schema table has none.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	if err := m.createSchemaTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []int{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// CurrentVersion returns the highest applied version, or 0.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	applied, err := m.Applied(ctx)
	if err != nil || len(applied) == 0 {
		return 0, err
	}
	return applied[len(applied)-1], nil
}

func (m *Migrator) createSchemaTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

const recordQuery = "INSERT INTO schema_migrations (version) VALUES (?)"

// apply runs one migration and records it, inside a transaction unless the
// migration is marked notransaction.
func (m *Migrator) apply(ctx context.Context, migration Migration) error {
	if migration.NoTransaction {
		if _, err := m.db.ExecContext(ctx, migration.UpSQL); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
		if _, err := m.db.ExecContext(ctx, recordQuery, migration.Version); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, recordQuery, migration.Version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
