package contracts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/contracts"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/testutils"
)

func TestNormalizeOptionType(t *testing.T) {
	out, err := contracts.NormalizeOptionType(repository.ContractOption{
		SeasonYear: 2027, Type: "player", Status: "pending",
	})
	require.NoError(t, err)
	require.Equal(t, "PLAYER", out.Type)
	require.Equal(t, "PENDING", out.Status)

	_, err = contracts.NormalizeOptionType(repository.ContractOption{
		SeasonYear: 2027, Type: "bogus", Status: "pending",
	})
	require.Error(t, err)

	_, err = contracts.NormalizeOptionType(repository.ContractOption{
		SeasonYear: 2027, Type: "team", Status: "exercised",
	})
	require.Error(t, err, "exercised options require a decision_date")
}

func seedActivePlayer(t *testing.T, repo *repository.Repository, playerID, teamID string, now time.Time) {
	t.Helper()
	ctx := context.Background()
	testutils.SeedTeams(t, repo.DB(), []string{teamID})
	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		if err := repository.EnsureFreeAgencyTeamExists(ctx, tx, now); err != nil {
			return err
		}
		if err := repository.UpsertPlayers(ctx, tx, []repository.Player{{PlayerID: playerID, Name: "Test Player"}}, now); err != nil {
			return err
		}
		return repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: playerID, TeamID: teamID, Status: "active",
		}, now)
	})
	require.NoError(t, err)
}

// TestProcessOffseason_DeclinedOptionShortensContractThenExpires exercises
// spec §8 scenario 6: a contract with a PENDING PLAYER option for 2027 that
// a custom policy declines. Options are only resolved by process_offseason
// when option.SeasonYear == toYear (internal/contracts/contracts.go), so
// process_offseason(2025,2026) is a no-op for this fixture: the 2027 option
// is only decided by process_offseason(2026,2027), which declines it,
// shortens years to 2, and — since toYear(2027) now equals
// start_season_year(2025)+years(2)=2027 — expires the contract and releases
// the player to free agency in that same call.
func TestProcessOffseason_DeclinedOptionShortensContractThenExpires(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedActivePlayer(t, repo, "P000001", "ATL", now)

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.UpsertContractRecords(ctx, tx, []repository.Contract{
			{
				ContractID:      "C1",
				PlayerID:        "P000001",
				TeamID:          "ATL",
				StartSeasonID:   "2025-26",
				StartSeasonYear: 2025,
				Years:           3,
				SalaryBySeason: map[string]int64{
					"2025": 1_000_000,
					"2026": 1_100_000,
					"2027": 1_200_000,
				},
				Options: []repository.ContractOption{
					{SeasonYear: 2027, Type: "PLAYER", Status: "PENDING"},
				},
				Status:     "ACTIVE",
				IsActive:   true,
				SignedDate: "2025-07-01",
			},
		}, now)
	})
	require.NoError(t, err)

	lc := &leaguectx.Context{Repo: repo, Now: now}

	declinePolicy := func(repository.ContractOption, string, repository.Contract) string {
		return "DECLINE"
	}

	require.NoError(t, contracts.ProcessOffseason(ctx, lc, 2025, 2026, declinePolicy))
	require.NoError(t, contracts.ProcessOffseason(ctx, lc, 2026, 2027, declinePolicy))

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		var status string
		var isActive int
		var years int
		var salaryByYear, options string
		row := tx.QueryRowContext(ctx, "SELECT status, is_active, years, salary_by_season, options FROM contracts WHERE contract_id = ?", "C1")
		require.NoError(t, row.Scan(&status, &isActive, &years, &salaryByYear, &options))
		require.Equal(t, "EXPIRED", status)
		require.Equal(t, 0, isActive)
		require.Equal(t, 2, years)
		require.NotContains(t, salaryByYear, `"2027"`, "declined option year must be removed from salary_by_season")
		require.Contains(t, options, `"status":"DECLINED"`)

		entry, err := repository.GetRosterEntry(ctx, tx, "P000001")
		require.NoError(t, err)
		require.Equal(t, "FA", entry.TeamID)
		return nil
	})
	require.NoError(t, err)
}

func TestSignFreeAgent_RequiresPlayerBeOnFA(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedActivePlayer(t, repo, "P000001", "ATL", now)
	lc := &leaguectx.Context{Repo: repo, Now: now}

	err := contracts.SignFreeAgent(ctx, lc, "P000001", "BOS", 1,
		map[string]int64{"2025": 1_000_000}, "2025-07-01", "C2")
	require.Error(t, err, "player already rostered on ATL is not a free agent")
}

func TestSignFreeAgent_SignsPlayerCurrentlyOnFA(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	testutils.SeedTeams(t, repo.DB(), []string{"BOS"})

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		if err := repository.EnsureFreeAgencyTeamExists(ctx, tx, now); err != nil {
			return err
		}
		if err := repository.UpsertPlayers(ctx, tx, []repository.Player{{PlayerID: "P000002", Name: "Free Agent"}}, now); err != nil {
			return err
		}
		return repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: "P000002", TeamID: "FA", Status: "free_agent",
		}, now)
	})
	require.NoError(t, err)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	err = contracts.SignFreeAgent(ctx, lc, "P000002", "BOS", 2,
		map[string]int64{"2025": 900_000, "2026": 950_000}, "2025-07-15", "C3")
	require.NoError(t, err)

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		entry, err := repository.GetRosterEntry(ctx, tx, "P000002")
		require.NoError(t, err)
		require.Equal(t, "BOS", entry.TeamID)

		c, err := repository.GetActiveContractForPlayer(ctx, tx, "P000002")
		require.NoError(t, err)
		require.Equal(t, "BOS", c.TeamID)
		require.Equal(t, 2, c.Years)
		return nil
	})
	require.NoError(t, err)
}

func TestReSignOrExtend_ReplacesExistingActiveContract(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedActivePlayer(t, repo, "P000003", "ATL", now)
	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.UpsertContractRecords(ctx, tx, []repository.Contract{
			{ContractID: "C4", PlayerID: "P000003", TeamID: "ATL", StartSeasonID: "2024-25",
				StartSeasonYear: 2024, Years: 1, IsActive: true, SignedDate: "2024-07-01",
				SalaryBySeason: map[string]int64{"2024": 500_000}},
		}, now)
	})
	require.NoError(t, err)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	err = contracts.ReSignOrExtend(ctx, lc, "P000003", "ATL", 3,
		map[string]int64{"2025": 2_000_000, "2026": 2_100_000, "2027": 2_200_000}, "2025-07-01", "C5")
	require.NoError(t, err)

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		c, err := repository.GetActiveContractForPlayer(ctx, tx, "P000003")
		require.NoError(t, err)
		require.Equal(t, "C5", c.ContractID)
		require.Equal(t, 3, c.Years)

		var oldActive bool
		row := tx.QueryRowContext(ctx, "SELECT is_active FROM contracts WHERE contract_id = ?", "C4")
		require.NoError(t, row.Scan(&oldActive))
		require.False(t, oldActive, "previous contract must be deactivated")
		return nil
	})
	require.NoError(t, err)
}
