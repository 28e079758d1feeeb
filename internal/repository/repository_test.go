package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/testutils"
)

func TestTransaction_NestedSavepointCommits(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		require.NoError(t, repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Test Player", Position: "G"},
		}, now))

		return repo.Transaction(ctx, true, func(ctx context.Context, inner *repository.Tx) error {
			return repository.UpsertPlayers(ctx, inner, []repository.Player{
				{PlayerID: "P000002", Name: "Second Player", Position: "F"},
			}, now)
		})
	})
	require.NoError(t, err)

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM players")
		require.NoError(t, row.Scan(&count))
		require.Equal(t, 2, count)
		return nil
	})
	require.NoError(t, err)
}

func TestTransaction_NestedSavepointRollsBackOnError(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		require.NoError(t, repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Outer Survivor"},
		}, now))

		innerErr := repo.Transaction(ctx, true, func(ctx context.Context, inner *repository.Tx) error {
			require.NoError(t, repository.UpsertPlayers(ctx, inner, []repository.Player{
				{PlayerID: "P000002", Name: "Inner Rolled Back"},
			}, now))
			return assertFail()
		})
		require.Error(t, innerErr)
		return nil
	})
	require.NoError(t, err)

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM players")
		require.NoError(t, row.Scan(&count))
		require.Equal(t, 1, count, "only the outer insert should have survived")
		return nil
	})
	require.NoError(t, err)
}

func assertFail() error {
	return errBoom
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

func TestUpsertPlayers_UpdatesOnConflict(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Original Name", Position: "G"},
		}, now)
	})
	require.NoError(t, err)

	err = repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Updated Name", Position: "F"},
		}, now.Add(time.Hour))
	})
	require.NoError(t, err)

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		var name, position string
		row := tx.QueryRowContext(ctx, "SELECT name, position FROM players WHERE player_id = ?", "P000001")
		require.NoError(t, row.Scan(&name, &position))
		require.Equal(t, "Updated Name", name)
		require.Equal(t, "F", position)
		return nil
	})
	require.NoError(t, err)
}

func TestEnsureContractsBootstrappedFromRoster_Idempotent(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		require.NoError(t, repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Player One"},
		}, now))
		require.NoError(t, repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: "P000001", TeamID: "ATL", SalaryAmount: 1_000_000, Status: "active",
		}, now))
		return nil
	})
	require.NoError(t, err)

	runBootstrap := func() {
		err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
			return repository.EnsureContractsBootstrappedFromRoster(ctx, tx, 2025, now)
		})
		require.NoError(t, err)
	}

	runBootstrap()
	runBootstrap()

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM contracts WHERE player_id = ?", "P000001")
		require.NoError(t, row.Scan(&count))
		require.Equal(t, 1, count, "bootstrap must be idempotent")
		return nil
	})
	require.NoError(t, err)
}
