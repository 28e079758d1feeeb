// Package repository implements the typed CRUD layer and nested-transaction
// discipline described in spec.md §4.2/§9: a single database/sql connection
// per operation, outer BEGIN IMMEDIATE/BEGIN with inner SAVEPOINTs for nested
// callers, and one Go type per table family.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	leaguedb "stormlightlabs.org/leaguecore/internal/db"
)

// Querier is the subset of *sql.DB / *sql.Tx every typed CRUD method needs.
// Tx and the connection returned by Repository.DB() both implement it, so
// CRUD methods can be written once
// against Querier and work whether or not a transaction is already open.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository wraps a single SQLite database file. It owns the transaction
// depth counter described in spec §9 "Nested transactions" — the counter
// lives here, on the handle, never as a package global, so two Repository
// values opened against two different files never interfere.
type Repository struct {
	db    *leaguedb.DB
	depth int32
}

// Open connects to path, applies pending migrations, and returns a ready
// Repository. This is the one place service code should call to get a
// Repository instance in production; tests build one directly from an
// already-open *db.DB via New.
func Open(ctx context.Context, path string) (*Repository, error) {
	conn, err := leaguedb.Connect(path)
	if err != nil {
		return nil, err
	}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return New(conn), nil
}

// New wraps an already-connected, already-migrated *db.DB.
func New(conn *leaguedb.DB) *Repository {
	return &Repository{db: conn}
}

// Close releases the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB exposes the underlying connection for callers (migrations, InitDB) that
// need it directly. Everything else should go through Transaction.
func (r *Repository) DB() *leaguedb.DB {
	return r.db
}

// InitDB re-applies the embedded schema. It is idempotent (every statement is
// CREATE TABLE/INDEX IF NOT EXISTS) and, per spec §4.2/§9, refuses to run
// while a transaction is open since DDL in SQLite implicitly commits.
func (r *Repository) InitDB(ctx context.Context) error {
	if atomic.LoadInt32(&r.depth) != 0 {
		return fmt.Errorf("init_db: cannot run schema DDL while a transaction is open")
	}
	return r.db.Migrate(ctx)
}

// Tx is the handle passed to callbacks inside Transaction. It implements
// Querier so every repository CRUD method can be written to take a Querier
// and be called equally from inside or outside an explicit transaction.
type Tx struct {
	q     Querier
	repo  *Repository
	depth int32
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.q.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.q.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.q.QueryRowContext(ctx, query, args...)
}

// Transaction implements the scoped acquisition described in spec §4.2/§9:
// the outermost call issues BEGIN IMMEDIATE (write) or BEGIN (read); a nested
// call (depth > 0 on entry) instead emits a named SAVEPOINT and shares the
// outer call's connection (there is no *sql.Tx: BEGIN, SAVEPOINT, COMMIT and
// ROLLBACK are plain statements on the *sql.DB), releasing the savepoint on success and rolling back to it on
// failure. fn's error, if any, propagates after the rollback/ROLLBACK TO so
// callers see exactly what failed.
func (r *Repository) Transaction(ctx context.Context, write bool, fn func(ctx context.Context, tx *Tx) error) error {
	if atomic.LoadInt32(&r.depth) == 0 {
		return r.runOuter(ctx, write, fn)
	}
	return r.runNested(ctx, fn)
}

func (r *Repository) runOuter(ctx context.Context, write bool, fn func(ctx context.Context, tx *Tx) error) error {
	beginStmt := "BEGIN"
	if write {
		beginStmt = "BEGIN IMMEDIATE"
	}
	if _, err := r.db.ExecContext(ctx, beginStmt); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	atomic.StoreInt32(&r.depth, 1)
	tx := &Tx{q: r.db.DB, repo: r, depth: 1}

	err := fn(ctx, tx)

	atomic.StoreInt32(&r.depth, 0)
	if err != nil {
		if _, rbErr := r.db.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
			return fmt.Errorf("original error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if _, err := r.db.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *Repository) runNested(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	depth := atomic.AddInt32(&r.depth, 1)
	savepoint := fmt.Sprintf("sp%d", depth)

	if _, err := r.db.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		atomic.AddInt32(&r.depth, -1)
		return fmt.Errorf("failed to create savepoint %s: %w", savepoint, err)
	}

	tx := &Tx{q: r.db.DB, repo: r, depth: depth}
	err := fn(ctx, tx)

	atomic.AddInt32(&r.depth, -1)
	if err != nil {
		if _, rbErr := r.db.ExecContext(ctx, "ROLLBACK TO "+savepoint); rbErr != nil {
			return fmt.Errorf("original error: %w (rollback to %s also failed: %v)", err, savepoint, rbErr)
		}
		return err
	}
	if _, err := r.db.ExecContext(ctx, "RELEASE "+savepoint); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", savepoint, err)
	}
	return nil
}
