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

func seedTradeFixture(t *testing.T, repo *repository.Repository, now time.Time) {
	t.Helper()
	ctx := context.Background()
	testutils.SeedTeams(t, repo.DB(), []string{"ATL", "BOS"})

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		if err := repository.EnsureFreeAgencyTeamExists(ctx, tx, now); err != nil {
			return err
		}
		if err := repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Atlanta Player"},
			{PlayerID: "P000002", Name: "Boston Player"},
		}, now); err != nil {
			return err
		}
		if err := repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: "P000001", TeamID: "ATL", SalaryAmount: 5_000_000, Status: "active",
		}, now); err != nil {
			return err
		}
		return repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: "P000002", TeamID: "BOS", SalaryAmount: 4_800_000, Status: "active",
		}, now)
	})
	require.NoError(t, err)
}

func TestApplyDeal_SwapsTwoPlayersAndLogsTransaction(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	d, err := trade.ParseDeal([]byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002"}]
		},
		"draft_year": 2025
	}`))
	require.NoError(t, err)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	require.NoError(t, trade.ApplyDeal(ctx, lc, d, "test", "", ""))

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		e1, err := repository.GetRosterEntry(ctx, tx, "P000001")
		require.NoError(t, err)
		require.Equal(t, "BOS", e1.TeamID)

		e2, err := repository.GetRosterEntry(ctx, tx, "P000002")
		require.NoError(t, err)
		require.Equal(t, "ATL", e2.TeamID)

		entries, err := repository.ListTransactions(ctx, tx, repository.TransactionFilter{TxType: "trade", Limit: 10})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "test", entries[0].Source)
		return nil
	})
	require.NoError(t, err)
}

func TestApplyDeal_RejectsPlayerNoLongerOnSendingTeam(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	// Move P000001 off ATL before the deal is applied, simulating a stale leg.
	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.TradePlayer(ctx, tx, "P000001", "BOS", now)
	})
	require.NoError(t, err)

	d, err := trade.ParseDeal([]byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002"}]
		},
		"draft_year": 2025
	}`))
	require.NoError(t, err)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	err = trade.ApplyDeal(ctx, lc, d, "test", "", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "APPLY_FAILED")
}

func TestExecuteDeal_RunsRulesBeforeApplying(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	d, err := trade.ParseDeal([]byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002"}]
		},
		"draft_year": 2025
	}`))
	require.NoError(t, err)

	lc := &leaguectx.Context{
		Repo: repo, Now: now,
		TradeRules: leaguectx.TradeRulesConfig{TradeDeadline: now.AddDate(0, 1, 0).Format("2006-01-02")},
	}
	require.NoError(t, trade.ExecuteDeal(ctx, lc, "DEAL1", d, "test"))

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		e1, err := repository.GetRosterEntry(ctx, tx, "P000001")
		require.NoError(t, err)
		require.Equal(t, "BOS", e1.TeamID)
		return nil
	})
	require.NoError(t, err)
}

func TestExecuteDeal_StopsAtDeadlineRule(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	d, err := trade.ParseDeal([]byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002"}]
		},
		"draft_year": 2025
	}`))
	require.NoError(t, err)

	lc := &leaguectx.Context{
		Repo: repo, Now: now,
		TradeRules: leaguectx.TradeRulesConfig{TradeDeadline: now.AddDate(0, -1, 0).Format("2006-01-02")},
	}
	err = trade.ExecuteDeal(ctx, lc, "DEAL2", d, "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "DEAL_EXPIRED")

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		e1, err := repository.GetRosterEntry(ctx, tx, "P000001")
		require.NoError(t, err)
		require.Equal(t, "ATL", e1.TeamID, "a rejected deal must not move any player")
		return nil
	})
	require.NoError(t, err)
}
