package matchresult_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/matchresult"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/testutils"
)

func validResultJSON(t *testing.T) []byte {
	t.Helper()
	payload := map[string]any{
		"schema_version": "2.0",
		"game": map[string]any{
			"game_id": "G000001", "date": "2025-11-01", "season_id": "2025-26",
			"phase": "regular", "home_team_id": "ATL", "away_team_id": "BOS",
			"overtime_periods": 0, "possessions_per_team": 98,
		},
		"final": map[string]any{"ATL": 101, "BOS": 97},
		"teams": map[string]any{
			"ATL": map[string]any{
				"totals":     map[string]any{"PTS": 101, "FGM": 38},
				"breakdowns": map[string]any{},
				"players": []any{
					map[string]any{"PlayerID": "P000001", "TeamID": "ATL", "PTS": 30},
				},
			},
			"BOS": map[string]any{
				"totals":     map[string]any{"PTS": 97},
				"breakdowns": map[string]any{},
				"players": []any{
					map[string]any{"PlayerID": "P000002", "TeamID": "BOS", "PTS": 22},
				},
			},
		},
		"game_state": map[string]any{
			"team_fouls":         map[string]any{"home": 12, "away": 14},
			"player_fouls":       map[string]any{"home": map[string]any{"P000001": 2}, "away": map[string]any{"P000002": 3}},
			"fatigue":            map[string]any{"home": map[string]any{"P000001": 0.4}, "away": map[string]any{"P000002": 0.6}},
			"minutes_played_sec": map[string]any{"home": map[string]any{"P000001": 2100}, "away": map[string]any{"P000002": 1900}},
		},
		"meta": map[string]any{
			"engine_name": "matchengine", "engine_version": "2.0.0", "era": "modern", "era_version": "1", "replay_token": "abc123",
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return raw
}

func TestParseGameResult_ValidPayloadRemapsGameState(t *testing.T) {
	ids.RegisterTeam("ATL")
	ids.RegisterTeam("BOS")
	t.Cleanup(ids.ResetKnownTeams)

	r, err := matchresult.ParseGameResult(validResultJSON(t))
	require.NoError(t, err)
	require.Equal(t, "ATL", r.Game.HomeTeamID)
	require.Equal(t, 101, r.Final["ATL"])
	require.Equal(t, float64(12), r.GameState["team_fouls"]["ATL"])
	require.Equal(t, float64(14), r.GameState["team_fouls"]["BOS"])
}

func TestParseGameResult_RejectsWrongSchemaVersion(t *testing.T) {
	ids.RegisterTeam("ATL")
	ids.RegisterTeam("BOS")
	t.Cleanup(ids.ResetKnownTeams)

	raw := validResultJSON(t)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	decoded["schema_version"] = "1.0"
	raw, _ = json.Marshal(decoded)

	_, err := matchresult.ParseGameResult(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestParseGameResult_RejectsPlayerOnBothTeams(t *testing.T) {
	ids.RegisterTeam("ATL")
	ids.RegisterTeam("BOS")
	t.Cleanup(ids.ResetKnownTeams)

	raw := validResultJSON(t)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	teams := decoded["teams"].(map[string]any)
	bos := teams["BOS"].(map[string]any)
	bos["players"] = []any{map[string]any{"PlayerID": "P000001", "TeamID": "BOS", "PTS": 5}}
	raw, _ = json.Marshal(decoded)

	_, err := matchresult.ParseGameResult(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "more than one team")
}

func TestParseGameResult_RejectsMissingPTS(t *testing.T) {
	ids.RegisterTeam("ATL")
	ids.RegisterTeam("BOS")
	t.Cleanup(ids.ResetKnownTeams)

	raw := validResultJSON(t)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	teams := decoded["teams"].(map[string]any)
	atl := teams["ATL"].(map[string]any)
	delete(atl["totals"].(map[string]any), "PTS")
	raw, _ = json.Marshal(decoded)

	_, err := matchresult.ParseGameResult(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PTS")
}

func TestIngest_MarksScheduleGameFinal(t *testing.T) {
	ids.RegisterTeam("ATL")
	ids.RegisterTeam("BOS")
	t.Cleanup(ids.ResetKnownTeams)

	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		testutils.SeedTeams(t, repo.DB(), []string{"ATL", "BOS"})
		return repository.InsertScheduleGames(ctx, tx, []repository.ScheduleGame{
			{GameID: "G000001", Date: "2025-11-01", HomeTeamID: "ATL", AwayTeamID: "BOS", Status: "scheduled", SeasonID: "2025-26", Phase: "regular"},
		})
	})
	require.NoError(t, err)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	result, err := matchresult.Ingest(ctx, lc, validResultJSON(t))
	require.NoError(t, err)
	require.Equal(t, "G000001", result.Game.GameID)

	g, err := repository.GetScheduleGame(ctx, repo.DB(), "G000001")
	require.NoError(t, err)
	require.Equal(t, "final", g.Status)
	require.Equal(t, 101, *g.HomeScore)
	require.Equal(t, 97, *g.AwayScore)
}
