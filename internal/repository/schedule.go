package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
)

// InsertScheduleGames bulk-inserts the games build_master_schedule produces
// for a season. Called once per season inside the schedule builder's write
// transaction; a conflicting game_id is an implementation bug, not a
// recoverable condition, so it is left to surface as a raw SQL error.
func InsertScheduleGames(ctx context.Context, q Querier, games []ScheduleGame) error {
	for _, g := range games {
		_, err := q.ExecContext(ctx, `
			INSERT INTO master_schedule (game_id, date, home_team_id, away_team_id, status, home_score, away_score, season_id, phase)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, g.GameID, g.Date, g.HomeTeamID, g.AwayTeamID, g.Status, g.HomeScore, g.AwayScore, g.SeasonID, g.Phase)
		if err != nil {
			return fmt.Errorf("insert_schedule_games: failed to insert %s: %w", g.GameID, err)
		}
	}
	return nil
}

// GetScheduleGame returns a single game by id.
func GetScheduleGame(ctx context.Context, q Querier, gameID string) (ScheduleGame, error) {
	var g ScheduleGame
	err := q.QueryRowContext(ctx, `
		SELECT game_id, date, home_team_id, away_team_id, status, home_score, away_score, season_id, phase
		FROM master_schedule WHERE game_id = ?
	`, gameID).Scan(&g.GameID, &g.Date, &g.HomeTeamID, &g.AwayTeamID, &g.Status, &g.HomeScore, &g.AwayScore, &g.SeasonID, &g.Phase)
	if err == sql.ErrNoRows {
		return g, core.NewNotFoundError("schedule game", gameID)
	}
	if err != nil {
		return g, fmt.Errorf("get_schedule_game: %w", err)
	}
	return g, nil
}

// ListScheduleForSeason returns every game in a season, ordered by date.
func ListScheduleForSeason(ctx context.Context, q Querier, seasonID string) ([]ScheduleGame, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT game_id, date, home_team_id, away_team_id, status, home_score, away_score, season_id, phase
		FROM master_schedule WHERE season_id = ?
		ORDER BY date, game_id
	`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list_schedule_for_season: %w", err)
	}
	defer rows.Close()

	var out []ScheduleGame
	for rows.Next() {
		var g ScheduleGame
		if err := rows.Scan(&g.GameID, &g.Date, &g.HomeTeamID, &g.AwayTeamID, &g.Status, &g.HomeScore, &g.AwayScore, &g.SeasonID, &g.Phase); err != nil {
			return nil, fmt.Errorf("list_schedule_for_season: scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RecordResult marks a scheduled game final with the given scores. This is
// the repository side of the GameResultV2 round trip described in
// SPEC_FULL.md §6: internal/matchresult validates and remaps an incoming
// result, then calls this to persist it.
func RecordResult(ctx context.Context, q Querier, gameID string, homeScore, awayScore int) error {
	res, err := q.ExecContext(ctx, `
		UPDATE master_schedule SET status = 'final', home_score = ?, away_score = ? WHERE game_id = ?
	`, homeScore, awayScore, gameID)
	if err != nil {
		return fmt.Errorf("record_result: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("schedule game", gameID)
	}
	return nil
}

// SetLeagueSetting stores a league_settings row (used by the schedule builder
// to persist the trade deadline).
func SetLeagueSetting(ctx context.Context, q Querier, key, value string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO league_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, core.FormatTimestamp(now))
	if err != nil {
		return fmt.Errorf("set_league_setting: %w", err)
	}
	return nil
}

// GetLeagueSetting reads back a single league_settings value.
func GetLeagueSetting(ctx context.Context, q Querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM league_settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", core.NewNotFoundError("league setting", key)
	}
	if err != nil {
		return "", fmt.Errorf("get_league_setting: %w", err)
	}
	return value, nil
}
