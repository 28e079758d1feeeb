// Package matchresult implements the GameResultV2 ingestion contract
// (spec §6): the core's only point of contact with the external match
// engine. It owns decoding, validation, and side-keyed-to-team-id
// remapping; persisting the final score is delegated back to
// internal/repository.
package matchresult

import (
	"context"
	"encoding/json"
	"fmt"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// SchemaVersion is the only version this core accepts.
const SchemaVersion = "2.0"

var allowedPhases = map[string]bool{
	"regular": true, "play_in": true, "playoffs": true, "preseason": true,
}

// GameInfo mirrors the "game" block of GameResultV2.
type GameInfo struct {
	GameID             string `json:"game_id"`
	Date               string `json:"date"`
	SeasonID           string `json:"season_id"`
	Phase              string `json:"phase"`
	HomeTeamID         string `json:"home_team_id"`
	AwayTeamID         string `json:"away_team_id"`
	OvertimePeriods    int    `json:"overtime_periods"`
	PossessionsPerTeam int    `json:"possessions_per_team"`
}

// TeamResult mirrors one entry of the "teams" map. Stat shapes vary by
// engine version, so totals/breakdowns/players are kept as loosely typed
// JSON values; matchresult only cares about the fields spec §6 names.
type TeamResult struct {
	Totals          map[string]any   `json:"totals"`
	Breakdowns      map[string]any   `json:"breakdowns"`
	Players         []map[string]any `json:"players"`
	ExtraTotals     map[string]any   `json:"extra_totals,omitempty"`
	ExtraBreakdowns map[string]any   `json:"extra_breakdowns,omitempty"`
}

// ResultMeta mirrors the "meta" block.
type ResultMeta struct {
	EngineName    string `json:"engine_name"`
	EngineVersion string `json:"engine_version"`
	Era           string `json:"era"`
	EraVersion    string `json:"era_version"`
	ReplayToken   string `json:"replay_token"`
}

// GameResultV2 is the typed decode target for the full ingestion payload.
// GameState holds the four side-keyed-or-team-keyed dicts in their raw
// form; ParseGameResult remaps them to team ids before returning.
type GameResultV2 struct {
	SchemaVersion string                    `json:"schema_version"`
	Game          GameInfo                  `json:"game"`
	Final         map[string]int            `json:"final"`
	Teams         map[string]TeamResult     `json:"teams"`
	GameState     map[string]map[string]any `json:"game_state"`
	Meta          ResultMeta                `json:"meta"`
}

func invalid(message string, details map[string]any) error {
	return core.NewTradeError(core.ErrInvalidInput, message, details)
}

// ParseGameResult decodes and fully validates raw against spec §6:
// schema_version, phase enum, exactly-two-team final/teams maps, PTS
// presence, canonical and team-consistent player ids, and side-keyed
// remapping of every game_state dict onto team ids.
func ParseGameResult(raw []byte) (*GameResultV2, error) {
	var r GameResultV2
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, invalid("malformed GameResultV2 payload", map[string]any{"error": err.Error()})
	}

	if r.SchemaVersion != SchemaVersion {
		return nil, invalid("unsupported schema_version", map[string]any{"got": r.SchemaVersion, "want": SchemaVersion})
	}
	if !allowedPhases[r.Game.Phase] {
		return nil, invalid("invalid phase", map[string]any{"phase": r.Game.Phase})
	}

	home, err := ids.NormalizeTeamID(r.Game.HomeTeamID, true, false)
	if err != nil {
		return nil, invalid("invalid home_team_id", map[string]any{"home_team_id": r.Game.HomeTeamID, "error": err.Error()})
	}
	away, err := ids.NormalizeTeamID(r.Game.AwayTeamID, true, false)
	if err != nil {
		return nil, invalid("invalid away_team_id", map[string]any{"away_team_id": r.Game.AwayTeamID, "error": err.Error()})
	}
	if home == away {
		return nil, invalid("home_team_id and away_team_id must differ", map[string]any{"team_id": home})
	}
	r.Game.HomeTeamID, r.Game.AwayTeamID = home, away

	if err := requireExactlyTeams(r.Final, home, away, "final"); err != nil {
		return nil, err
	}
	if err := requireExactlyTeams(teamsAsAny(r.Teams), home, away, "teams"); err != nil {
		return nil, err
	}

	seen := map[string]string{} // player_id -> team_id that already claimed it
	for _, teamID := range []string{home, away} {
		team := r.Teams[teamID]
		if _, ok := team.Totals["PTS"]; !ok {
			return nil, invalid("team totals missing PTS", map[string]any{"team_id": teamID})
		}

		for i, row := range team.Players {
			rawPID, _ := row["PlayerID"].(string)
			pid, err := ids.NormalizePlayerID(rawPID, true, false)
			if err != nil {
				return nil, invalid("player row has a non-canonical PlayerID", map[string]any{
					"team_id": teamID, "index": i, "player_id": rawPID,
				})
			}
			rowTeam, _ := row["TeamID"].(string)
			if rowTeam != teamID {
				return nil, invalid("player row TeamID does not match its containing team", map[string]any{
					"player_id": pid, "row_team_id": rowTeam, "team_id": teamID,
				})
			}
			if owner, dup := seen[pid]; dup {
				return nil, invalid("player appears on more than one team", map[string]any{
					"player_id": pid, "first_team": owner, "second_team": teamID,
				})
			}
			seen[pid] = teamID
			row["PlayerID"] = pid
		}
	}

	remapped := make(map[string]map[string]any, len(r.GameState))
	for key, obj := range r.GameState {
		m, err := remapSideKeyed(obj, home, away, fmt.Sprintf("game_state.%s", key))
		if err != nil {
			return nil, err
		}
		remapped[key] = m
	}
	r.GameState = remapped

	return &r, nil
}

// teamsAsAny adapts a map[string]TeamResult to map[string]any so it can
// share requireExactlyTeams with the int-valued "final" map.
func teamsAsAny(teams map[string]TeamResult) map[string]any {
	out := make(map[string]any, len(teams))
	for k, v := range teams {
		out[k] = v
	}
	return out
}

func requireExactlyTeams[V any](m map[string]V, home, away, path string) error {
	if len(m) != 2 {
		return invalid(fmt.Sprintf("%s must have exactly two entries", path), map[string]any{"got": len(m)})
	}
	if _, ok := m[home]; !ok {
		return invalid(fmt.Sprintf("%s missing home_team_id entry", path), map[string]any{"home_team_id": home})
	}
	if _, ok := m[away]; !ok {
		return invalid(fmt.Sprintf("%s missing away_team_id entry", path), map[string]any{"away_team_id": away})
	}
	return nil
}

// remapSideKeyed maps {"home": x, "away": y} onto {home_team_id: x,
// away_team_id: y}. A dict already keyed by the two team ids passes
// through unchanged. Anything else is rejected rather than guessed at.
func remapSideKeyed(obj map[string]any, home, away, path string) (map[string]any, error) {
	if obj == nil {
		return map[string]any{home: map[string]any{}, away: map[string]any{}}, nil
	}

	_, hasHome := obj["home"]
	_, hasAway := obj["away"]
	if hasHome || hasAway {
		if len(obj) != 2 || !hasHome || !hasAway {
			return nil, invalid(fmt.Sprintf("%s must include both 'home' and 'away' keys", path), map[string]any{"keys": keysOf(obj)})
		}
		return map[string]any{home: obj["home"], away: obj["away"]}, nil
	}

	if _, ok := obj[home]; ok {
		if _, ok := obj[away]; ok && len(obj) == 2 {
			return obj, nil
		}
	}

	return nil, invalid(fmt.Sprintf("%s keys cannot be mapped to team ids", path), map[string]any{
		"keys": keysOf(obj), "home_team_id": home, "away_team_id": away,
	})
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Ingest validates raw and, on success, marks the corresponding
// master_schedule entry final with the reported score — completing the
// round trip from "match engine produces a result" to "schedule entry is
// final" that spec §6 implies but does not name as a single operation.
func Ingest(ctx context.Context, lc *leaguectx.Context, raw []byte) (*GameResultV2, error) {
	result, err := ParseGameResult(raw)
	if err != nil {
		return nil, err
	}

	err = lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		return repository.RecordResult(ctx, tx, result.Game.GameID, result.Final[result.Game.HomeTeamID], result.Final[result.Game.AwayTeamID])
	})
	if err != nil {
		return nil, fmt.Errorf("matchresult: %w", err)
	}
	return result, nil
}
