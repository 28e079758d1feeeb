// Package testutils provides test database setup for League Core tests. The
// engine is an embedded, single-file SQLite database rather than a server,
// so tests get a fresh temp-file database per call instead of spinning up a
// testcontainers-go Postgres instance the way the teacher's test suite does
// (see DESIGN.md for why testcontainers doesn't apply here).
package testutils

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	leaguedb "stormlightlabs.org/leaguecore/internal/db"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// SetupTestDB creates a migrated, temp-file SQLite database and returns the
// raw *sql.DB alongside its path and a cleanup function, mirroring the
// teacher's SetupTestDB(t) shape so call sites read the same way.
func SetupTestDB(t *testing.T) (*sql.DB, string, func()) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "league_test.db")

	conn, err := leaguedb.Connect(path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := conn.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cleanup := func() {
		conn.Close()
		os.Remove(path)
	}

	return conn.DB, path, cleanup
}

// NewTestRepository opens a fresh migrated temp-file database through
// repository.Open (not SetupTestDB) and returns a ready *repository.Repository,
// for tests that work at the repository/service level rather than raw SQL.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "league_test.db")

	repo, err := repository.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to open test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// SeedTeams inserts the given team ids (plus the distinguished FA team) into
// the teams table directly, bypassing the higher-level contracts/schedule
// packages for tests that only need team rows to exist as foreign-key
// targets.
func SeedTeams(t *testing.T, db *leaguedb.DB, teamIDs []string) {
	t.Helper()

	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	for _, id := range append([]string{"FA"}, teamIDs...) {
		_, err := db.Exec(`
			INSERT INTO teams (team_id, name, division, conference, created_at, updated_at)
			VALUES (?, ?, '', '', ?, ?)
			ON CONFLICT(team_id) DO NOTHING
		`, id, id, now, now)
		if err != nil {
			t.Fatalf("failed to seed team %s: %v", id, err)
		}
	}
}
