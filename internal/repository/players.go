package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
)

// UpsertPlayers inserts or updates each player by player_id, per spec §3
// "created on import; updated on re-import/upsert". Every mutation stamps
// updated_at (spec §4.2 invariant).
func UpsertPlayers(ctx context.Context, q Querier, players []Player, now time.Time) error {
	for _, p := range players {
		attrs, err := json.Marshal(p.Attrs)
		if err != nil {
			return fmt.Errorf("upsert_players: failed to encode attrs for %s: %w", p.PlayerID, err)
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO players (player_id, name, position, age, height_inches, weight_lbs, overall_rating, attrs, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(player_id) DO UPDATE SET
				name = excluded.name,
				position = excluded.position,
				age = excluded.age,
				height_inches = excluded.height_inches,
				weight_lbs = excluded.weight_lbs,
				overall_rating = excluded.overall_rating,
				attrs = excluded.attrs,
				updated_at = excluded.updated_at
		`, p.PlayerID, p.Name, p.Position, p.Age, p.HeightInches, p.WeightLbs, p.OverallRating, string(attrs),
			core.FormatTimestamp(now), core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("upsert_players: failed to upsert %s: %w", p.PlayerID, err)
		}
	}
	return nil
}

// GetTeamRoster returns every roster row currently owned by teamID (FA is a
// valid team_id here, returning every unsigned player).
func GetTeamRoster(ctx context.Context, q Querier, teamID string) ([]RosterEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT player_id, team_id, salary_amount, status, updated_at
		FROM roster WHERE team_id = ?
		ORDER BY player_id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("get_team_roster: %w", err)
	}
	defer rows.Close()

	var out []RosterEntry
	for rows.Next() {
		var e RosterEntry
		var updatedAt string
		if err := rows.Scan(&e.PlayerID, &e.TeamID, &e.SalaryAmount, &e.Status, &updatedAt); err != nil {
			return nil, fmt.Errorf("get_team_roster: scan: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetRosterEntry returns the current roster row for a player, or
// core.NotFoundError if the player has no roster row at all.
func GetRosterEntry(ctx context.Context, q Querier, playerID string) (RosterEntry, error) {
	var e RosterEntry
	var updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT player_id, team_id, salary_amount, status, updated_at
		FROM roster WHERE player_id = ?
	`, playerID).Scan(&e.PlayerID, &e.TeamID, &e.SalaryAmount, &e.Status, &updatedAt)
	if err == sql.ErrNoRows {
		return e, core.NewNotFoundError("roster entry", playerID)
	}
	if err != nil {
		return e, fmt.Errorf("get_roster_entry: %w", err)
	}
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return e, nil
}

// TradePlayer moves playerID onto toTeam, stamping updated_at. It does not
// itself validate ownership or trade rules — those belong to the trade
// engine (internal/trade); this is the raw repository primitive named in
// spec §4.2.
func TradePlayer(ctx context.Context, q Querier, playerID, toTeam string, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE roster SET team_id = ?, updated_at = ? WHERE player_id = ?
	`, toTeam, core.FormatTimestamp(now), playerID)
	if err != nil {
		return fmt.Errorf("trade_player: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("roster entry", playerID)
	}
	return nil
}

// SetSalary updates a player's roster salary_amount.
func SetSalary(ctx context.Context, q Querier, playerID string, amount int64, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE roster SET salary_amount = ?, updated_at = ? WHERE player_id = ?
	`, amount, core.FormatTimestamp(now), playerID)
	if err != nil {
		return fmt.Errorf("set_salary: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("roster entry", playerID)
	}
	return nil
}

// UpsertRoster inserts or updates a roster row directly (used by import and
// by contracts.ReleaseToFreeAgents/SignFreeAgent rather than TradePlayer,
// since those also need to seed a never-before-seen player's roster row).
func UpsertRoster(ctx context.Context, q Querier, e RosterEntry, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO roster (player_id, team_id, salary_amount, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			team_id = excluded.team_id,
			salary_amount = excluded.salary_amount,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, e.PlayerID, e.TeamID, e.SalaryAmount, e.Status, core.FormatTimestamp(now))
	if err != nil {
		return fmt.Errorf("upsert_roster: %w", err)
	}
	return nil
}

// GetPlayer returns a player's bio row by id, or core.NotFoundError.
func GetPlayer(ctx context.Context, q Querier, playerID string) (Player, error) {
	var p Player
	var attrs sql.NullString
	var createdAt, updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT player_id, name, position, age, height_inches, weight_lbs, overall_rating, attrs, created_at, updated_at
		FROM players WHERE player_id = ?
	`, playerID).Scan(&p.PlayerID, &p.Name, &p.Position, &p.Age, &p.HeightInches, &p.WeightLbs, &p.OverallRating, &attrs, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return p, core.NewNotFoundError("player", playerID)
	}
	if err != nil {
		return p, fmt.Errorf("get_player: %w", err)
	}
	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &p.Attrs); err != nil {
			return p, fmt.Errorf("get_player: failed to decode attrs for %s: %w", playerID, err)
		}
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

// ListTeams returns every team row (including FA), ordered by team_id.
func ListTeams(ctx context.Context, q Querier) ([]Team, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT team_id, name, division, conference FROM teams ORDER BY team_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list_teams: %w", err)
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.TeamID, &t.Name, &t.Division, &t.Conference); err != nil {
			return nil, fmt.Errorf("list_teams: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ClearTeamRoster removes every roster row for teamID, used by import's
// "replace" mode to drop rows absent from a re-imported sheet.
func ClearTeamRoster(ctx context.Context, q Querier, teamID string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM roster WHERE team_id = ?`, teamID)
	if err != nil {
		return fmt.Errorf("clear_team_roster: %w", err)
	}
	return nil
}

// EnsureFreeAgencyTeamExists guarantees the distinguished FA team row exists
// (spec §3 "A distinguished id FA ... must always exist").
func EnsureFreeAgencyTeamExists(ctx context.Context, q Querier, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO teams (team_id, name, division, conference, created_at, updated_at)
		VALUES ('FA', 'Free Agency', '', '', ?, ?)
		ON CONFLICT(team_id) DO NOTHING
	`, core.FormatTimestamp(now), core.FormatTimestamp(now))
	if err != nil {
		return fmt.Errorf("ensure_fa_team: %w", err)
	}
	return nil
}
