package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/schedule"
	"stormlightlabs.org/leaguecore/internal/testutils"
)

func TestBuildMatchupCounts_TotalsToRegulationSeason(t *testing.T) {
	matchups := schedule.BuildMatchupCounts(schedule.LeagueStructure)

	total := 0
	perTeam := map[string]int{}
	for _, m := range matchups {
		total += m.Games()
		perTeam[m.TeamA()] += m.Games()
		perTeam[m.TeamB()] += m.Games()
	}

	require.Equal(t, 1230, total, "1230 total games across the league")
	require.Len(t, perTeam, 30)
	for team, games := range perTeam {
		require.Equal(t, 82, games, "team %s must play 82 games", team)
	}
}

func TestBuildMasterSchedule_PersistsRegulationSeason(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		for _, id := range schedule.LeagueStructure.TeamIDs() {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO teams (team_id, name, division, conference, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, id, schedule.LeagueStructure.DivisionOf(id), schedule.LeagueStructure.ConferenceOf(id),
				now.Format(time.RFC3339), now.Format(time.RFC3339))
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	lc.TradeRules.MaxPickYearsAhead = 7
	lc.TradeRules.StepienLookahead = 7

	require.NoError(t, schedule.BuildMasterSchedule(ctx, lc, 2025, nil))

	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		games, err := repository.ListScheduleForSeason(ctx, tx, "2025-26")
		require.NoError(t, err)
		require.Len(t, games, 1230)

		deadline, err := repository.GetLeagueSetting(ctx, tx, "trade_deadline")
		require.NoError(t, err)
		require.Equal(t, "2026-02-05", deadline)

		picks, err := repository.ListPicksOwnedBy(ctx, tx, "ARD")
		require.NoError(t, err)
		require.NotEmpty(t, picks, "draft picks should be seeded for every team")
		return nil
	})
	require.NoError(t, err)
}
