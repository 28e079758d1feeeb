// Package db owns the SQLite connection and embedded migrations for League
// Core. Entity-level CRUD lives in internal/repository; this package is only
// responsible for getting a *sql.DB into a known-good, fully migrated state.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration is a single embedded schema file, applied in filename order.
type Migration struct {
	Name    string
	Content string
}

// DB wraps a SQLite connection. All transaction-depth bookkeeping lives on
// repository.Repository, which wraps *DB in turn — this type only knows how
// to connect and migrate.
type DB struct {
	*sql.DB
	path string
}

// Connect opens (creating if necessary) the SQLite file at path and applies
// the pragmas League Core depends on for correctness under concurrent CLI
// invocations: WAL so readers don't block the writer, foreign key
// enforcement since the schema relies on it, and a busy timeout so a second
// process waiting on a writer lock blocks instead of failing immediately.
func Connect(path string) (*DB, error) {
	if path == "" {
		path = "league.db"
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only tolerates one writer; cap the pool so database/sql doesn't
	// hand out a second connection that immediately hits SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	return &DB{DB: sqlDB, path: path}, nil
}

// Path returns the filesystem path this DB was opened against.
func (db *DB) Path() string {
	return db.path
}

// loadMigrations reads the embedded schema files, sorted by filename.
func (db *DB) loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		content, err := migrationFiles.ReadFile("sql/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Name: name, Content: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}

// Migrate applies every embedded migration not yet reflected in user_version,
// one file per schema_version step, inside its own transaction. SQLite has no
// native migrations table convention, so League Core uses the connection's
// own user_version pragma as the applied-count: migration N sets
// user_version to N after it runs, so a fresh or partially migrated database
// always resumes from the right file.
func (db *DB) Migrate(ctx context.Context) error {
	migrations, err := db.loadMigrations()
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		return fmt.Errorf("no migration files found")
	}

	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i, migration := range migrations {
		version := i + 1
		if version <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", migration.Name, err)
		}

		if _, err := tx.ExecContext(ctx, migration.Content); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %s: %w", migration.Name, err)
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to bump schema version for %s: %w", migration.Name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", migration.Name, err)
		}
	}

	return db.recordMeta(ctx, len(migrations))
}

// recordMeta upserts the single meta row so callers can read schema_version
// and creation time through ordinary SQL instead of PRAGMA user_version.
func (db *DB) recordMeta(ctx context.Context, version int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO meta (id, schema_version, created_at)
		VALUES (1, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET schema_version = excluded.schema_version
	`, version)
	if err != nil {
		return fmt.Errorf("failed to record schema metadata: %w", err)
	}
	return nil
}

// SchemaVersion returns the currently applied schema version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT schema_version FROM meta WHERE id = 1").Scan(&version)
	return version, err
}
