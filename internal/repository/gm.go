package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
)

// UpsertGMProfile inserts or updates a single GM profile.
func UpsertGMProfile(ctx context.Context, q Querier, profile GMProfile, now time.Time) error {
	return UpsertGMProfiles(ctx, q, []GMProfile{profile}, now)
}

// UpsertGMProfiles inserts or updates GM profiles by team_id.
func UpsertGMProfiles(ctx context.Context, q Querier, profiles []GMProfile, now time.Time) error {
	for _, p := range profiles {
		blob, err := json.Marshal(p.Profile)
		if err != nil {
			return fmt.Errorf("upsert_gm_profiles: failed to encode profile for %s: %w", p.TeamID, err)
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO gm_profiles (team_id, profile, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(team_id) DO UPDATE SET
				profile = excluded.profile,
				updated_at = excluded.updated_at
		`, p.TeamID, string(blob), core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("upsert_gm_profiles: failed to upsert %s: %w", p.TeamID, err)
		}
	}
	return nil
}

// GetGMProfile returns a single team's GM profile.
func GetGMProfile(ctx context.Context, q Querier, teamID string) (GMProfile, error) {
	var p GMProfile
	var blob string
	var updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT team_id, profile, updated_at FROM gm_profiles WHERE team_id = ?
	`, teamID).Scan(&p.TeamID, &blob, &updatedAt)
	if err == sql.ErrNoRows {
		return p, core.NewNotFoundError("gm profile", teamID)
	}
	if err != nil {
		return p, fmt.Errorf("get_gm_profile: %w", err)
	}
	_ = json.Unmarshal([]byte(blob), &p.Profile)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

// EnsureGMProfilesSeeded inserts an empty default profile for every team
// that doesn't already have one, leaving existing profiles untouched.
func EnsureGMProfilesSeeded(ctx context.Context, q Querier, teamIDs []string, now time.Time) error {
	for _, team := range teamIDs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO gm_profiles (team_id, profile, updated_at)
			VALUES (?, '{}', ?)
			ON CONFLICT(team_id) DO NOTHING
		`, team, core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("ensure_gm_profiles_seeded: failed to seed %s: %w", team, err)
		}
	}
	return nil
}
