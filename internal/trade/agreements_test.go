package trade_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/testutils"
	"stormlightlabs.org/leaguecore/internal/trade"
)

func playerTradeDeal(t *testing.T) *trade.Deal {
	t.Helper()
	d, err := trade.ParseDeal([]byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002"}]
		},
		"draft_year": 2025
	}`))
	require.NoError(t, err)
	return d
}

func TestCreateCommittedDeal_LocksEveryAssetAndRejectsConflict(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	d := playerTradeDeal(t)

	require.NoError(t, trade.CreateCommittedDeal(ctx, lc, "DEAL1", d, 2))

	err := repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		locks, err := repository.ListLocksForDeal(ctx, tx, "DEAL1")
		require.NoError(t, err)
		require.Len(t, locks, 2)
		return nil
	})
	require.NoError(t, err)

	// A second, conflicting deal over the same player must be invalidated.
	d2 := playerTradeDeal(t)
	err = trade.CreateCommittedDeal(ctx, lc, "DEAL2", d2, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEAL_INVALIDATED")
}

func TestVerifyCommittedDeal_DetectsOwnershipDrift(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	d := playerTradeDeal(t)
	require.NoError(t, trade.CreateCommittedDeal(ctx, lc, "DEAL1", d, 2))
	require.NoError(t, trade.VerifyCommittedDeal(ctx, lc, "DEAL1", d))

	// Drift the underlying salary after the agreement was created.
	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: "P000001", TeamID: "ATL", SalaryAmount: 9_999_999, Status: "active",
		}, now)
	})
	require.NoError(t, err)

	err = trade.VerifyCommittedDeal(ctx, lc, "DEAL1", d)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEAL_INVALIDATED")
}

func TestVerifyCommittedDeal_ExpiresPastDeadline(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	d := playerTradeDeal(t)
	require.NoError(t, trade.CreateCommittedDeal(ctx, lc, "DEAL1", d, 1))

	future := &leaguectx.Context{Repo: repo, Now: now.AddDate(0, 0, 3)}
	err := trade.VerifyCommittedDeal(ctx, future, "DEAL1", d)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEAL_EXPIRED")
}

func TestMarkExecuted_ReleasesLocksAndAppliesDeal(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	d := playerTradeDeal(t)
	require.NoError(t, trade.CreateCommittedDeal(ctx, lc, "DEAL1", d, 2))
	require.NoError(t, trade.VerifyCommittedDeal(ctx, lc, "DEAL1", d))
	require.NoError(t, trade.ApplyDeal(ctx, lc, d, "agreement", "DEAL1", ""))
	require.NoError(t, trade.MarkExecuted(ctx, lc, "DEAL1"))

	err := repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		locks, err := repository.ListLocksForDeal(ctx, tx, "DEAL1")
		require.NoError(t, err)
		require.Empty(t, locks)

		a, err := repository.GetTradeAgreement(ctx, tx, "DEAL1")
		require.NoError(t, err)
		require.Equal(t, "EXECUTED", a.Status)
		return nil
	})
	require.NoError(t, err)
}

func TestGCExpiredAgreements_SweepsPastDeadline(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	d := playerTradeDeal(t)
	require.NoError(t, trade.CreateCommittedDeal(ctx, lc, "DEAL1", d, 1))

	swept, err := trade.GCExpiredAgreements(ctx, lc, now.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		a, err := repository.GetTradeAgreement(ctx, tx, "DEAL1")
		require.NoError(t, err)
		require.Equal(t, "EXPIRED", a.Status)

		locks, err := repository.ListLocksForDeal(ctx, tx, "DEAL1")
		require.NoError(t, err)
		require.Empty(t, locks)
		return nil
	})
	require.NoError(t, err)
}
