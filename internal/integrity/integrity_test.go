package integrity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/integrity"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/testutils"
)

func TestValidateIntegrity_CleanDatabasePasses(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		require.NoError(t, repository.EnsureFreeAgencyTeamExists(ctx, tx, now))
		require.NoError(t, repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Player One"},
		}, now))
		require.NoError(t, repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: "P000001", TeamID: "FA", Status: "active",
		}, now))
		return integrity.ValidateIntegrity(ctx, tx, true)
	})
	require.NoError(t, err)
}

func TestValidateIntegrity_CatchesDuplicateActiveContracts(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		require.NoError(t, repository.EnsureFreeAgencyTeamExists(ctx, tx, now))
		require.NoError(t, repository.UpsertPlayers(ctx, tx, []repository.Player{
			{PlayerID: "P000001", Name: "Player One"},
		}, now))
		require.NoError(t, repository.UpsertRoster(ctx, tx, repository.RosterEntry{
			PlayerID: "P000001", TeamID: "ATL", Status: "active",
		}, now))
		require.NoError(t, repository.UpsertContractRecords(ctx, tx, []repository.Contract{
			{ContractID: "C1", PlayerID: "P000001", TeamID: "ATL", StartSeasonID: "2025-26",
				StartSeasonYear: 2025, Years: 1, IsActive: true, SignedDate: "2025-07-01",
				SalaryBySeason: map[string]int64{"2025": 1}},
			{ContractID: "C2", PlayerID: "P000001", TeamID: "ATL", StartSeasonID: "2025-26",
				StartSeasonYear: 2025, Years: 1, IsActive: true, SignedDate: "2025-07-01",
				SalaryBySeason: map[string]int64{"2025": 1}},
		}, now))
		return nil
	})
	require.NoError(t, err)

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		return integrity.ValidateIntegrity(ctx, tx, true)
	})
	require.Error(t, err)
}
