package trade_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/testutils"
	"stormlightlabs.org/leaguecore/internal/trade"
)

// seedContractFixture seeds the same two-player ATL/BOS roster as
// seedTradeFixture plus an active contract for P000001 with the given
// signed_date, so PlayerEligibilityRule's sign-ban window can be exercised
// independently of roster updated_at (which TradePlayer also stamps).
func seedContractFixture(t *testing.T, repo *repository.Repository, now time.Time, signedDate string) {
	t.Helper()
	seedTradeFixture(t, repo, now)

	ctx := context.Background()
	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.UpsertContractRecords(ctx, tx, []repository.Contract{
			{
				ContractID: "C1", PlayerID: "P000001", TeamID: "ATL",
				StartSeasonID: "2025-26", StartSeasonYear: 2025, Years: 1,
				SalaryBySeason: map[string]int64{"2025": 5_000_000},
				Status:         "ACTIVE", IsActive: true, SignedDate: signedDate,
			},
		}, now)
	})
	require.NoError(t, err)
}

// simpleDeal builds a draft_year from the prior calendar year relative to
// now, so PlayerEligibilityRule's "Dec 15 of draft_year" floor always falls
// in the past regardless of when the test actually runs.
func simpleDeal(t *testing.T, now time.Time) *trade.Deal {
	t.Helper()
	d, err := trade.ParseDeal([]byte(fmt.Sprintf(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002"}]
		},
		"draft_year": %d
	}`, now.Year()-1)))
	require.NoError(t, err)
	return d
}

func TestExecuteDeal_BootstrappedContractIsExemptFromSignBan(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedContractFixture(t, repo, now, "1900-01-01")

	lc := &leaguectx.Context{
		Repo: repo, Now: now,
		TradeRules: leaguectx.TradeRulesConfig{
			TradeDeadline:    now.AddDate(0, 1, 0).Format("2006-01-02"),
			NewFASignBanDays: 90,
		},
	}
	require.NoError(t, trade.ExecuteDeal(ctx, lc, "DEAL1", simpleDeal(t, now), "test"))

	err := repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		e, err := repository.GetRosterEntry(ctx, tx, "P000001")
		require.NoError(t, err)
		require.Equal(t, "BOS", e.TeamID)
		return nil
	})
	require.NoError(t, err)
}

func TestExecuteDeal_RejectsRecentlySignedPlayer(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedContractFixture(t, repo, now, now.Format("2006-01-02"))

	lc := &leaguectx.Context{
		Repo: repo, Now: now,
		TradeRules: leaguectx.TradeRulesConfig{
			TradeDeadline:    now.AddDate(0, 1, 0).Format("2006-01-02"),
			NewFASignBanDays: 90,
		},
	}
	err := trade.ExecuteDeal(ctx, lc, "DEAL1", simpleDeal(t, now), "test")
	require.Error(t, err)
	require.Contains(t, err.Error(), "recently signed")
}
