package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/ids"
)

// UpsertDraftPicks inserts or updates draft picks by pick_id. original_team
// is immutable per spec §3 and is only ever set on first insert.
func UpsertDraftPicks(ctx context.Context, q Querier, picks []DraftPick, now time.Time) error {
	for _, p := range picks {
		var protectionJSON sql.NullString
		if p.Protection != nil {
			b, err := json.Marshal(p.Protection)
			if err != nil {
				return fmt.Errorf("upsert_draft_picks: failed to encode protection for %s: %w", p.PickID, err)
			}
			protectionJSON = sql.NullString{String: string(b), Valid: true}
		}

		_, err := q.ExecContext(ctx, `
			INSERT INTO draft_picks (pick_id, year, round, original_team, owner_team, protection, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(pick_id) DO UPDATE SET
				owner_team = excluded.owner_team,
				protection = excluded.protection,
				updated_at = excluded.updated_at
		`, p.PickID, p.Year, p.Round, p.OriginalTeam, p.OwnerTeam, protectionJSON, core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("upsert_draft_picks: failed to upsert %s: %w", p.PickID, err)
		}
	}
	return nil
}

// GetDraftPick returns a single pick by id.
func GetDraftPick(ctx context.Context, q Querier, pickID string) (DraftPick, error) {
	var p DraftPick
	var protection sql.NullString
	var updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT pick_id, year, round, original_team, owner_team, protection, updated_at
		FROM draft_picks WHERE pick_id = ?
	`, pickID).Scan(&p.PickID, &p.Year, &p.Round, &p.OriginalTeam, &p.OwnerTeam, &protection, &updatedAt)
	if err == sql.ErrNoRows {
		return p, core.NewNotFoundError("draft pick", pickID)
	}
	if err != nil {
		return p, fmt.Errorf("get_draft_pick: %w", err)
	}
	if protection.Valid {
		var pr PickProtection
		if err := json.Unmarshal([]byte(protection.String), &pr); err == nil {
			p.Protection = &pr
		}
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

// ListPicksOwnedBy returns every pick currently owned by teamID.
func ListPicksOwnedBy(ctx context.Context, q Querier, teamID string) ([]DraftPick, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT pick_id, year, round, original_team, owner_team, protection, updated_at
		FROM draft_picks WHERE owner_team = ?
		ORDER BY year, round, pick_id
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list_picks_owned_by: %w", err)
	}
	defer rows.Close()

	var out []DraftPick
	for rows.Next() {
		var p DraftPick
		var protection sql.NullString
		var updatedAt string
		if err := rows.Scan(&p.PickID, &p.Year, &p.Round, &p.OriginalTeam, &p.OwnerTeam, &protection, &updatedAt); err != nil {
			return nil, fmt.Errorf("list_picks_owned_by: scan: %w", err)
		}
		if protection.Valid {
			var pr PickProtection
			if err := json.Unmarshal([]byte(protection.String), &pr); err == nil {
				p.Protection = &pr
			}
		}
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// EnsureDraftPicksSeeded guarantees a round-1 and round-2 pick exists for
// every team, for every year in [draftYear, draftYear+yearsAhead], owned by
// its originating team unless already transferred (ON CONFLICT DO NOTHING
// preserves any existing owner_team).
func EnsureDraftPicksSeeded(ctx context.Context, q Querier, draftYear int, teamIDs []string, yearsAhead int, now time.Time) error {
	for year := draftYear; year <= draftYear+yearsAhead; year++ {
		for _, team := range teamIDs {
			for _, round := range []int{1, 2} {
				pickID, err := ids.NormalizePickID(year, round, team)
				if err != nil {
					return fmt.Errorf("ensure_draft_picks_seeded: %w", err)
				}
				_, err = q.ExecContext(ctx, `
					INSERT INTO draft_picks (pick_id, year, round, original_team, owner_team, protection, updated_at)
					VALUES (?, ?, ?, ?, ?, NULL, ?)
					ON CONFLICT(pick_id) DO NOTHING
				`, pickID, year, round, team, team, core.FormatTimestamp(now))
				if err != nil {
					return fmt.Errorf("ensure_draft_picks_seeded: failed to seed %s: %w", pickID, err)
				}
			}
		}
	}
	return nil
}

// UpsertSwapRights inserts or updates swap rights by swap_id, enforcing the
// "at most one active swap right per unordered pick pair" invariant (spec
// §3) via the pick_pair_key UNIQUE constraint.
func UpsertSwapRights(ctx context.Context, q Querier, swaps []SwapRight, now time.Time) error {
	for _, s := range swaps {
		active := 0
		if s.Active {
			active = 1
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO swap_rights (swap_id, pick_id_a, pick_id_b, year, round, owner_team, active, pick_pair_key, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(swap_id) DO UPDATE SET
				owner_team = excluded.owner_team,
				active = excluded.active,
				updated_at = excluded.updated_at
		`, s.SwapID, s.PickIDA, s.PickIDB, s.Year, s.Round, s.OwnerTeam, active, s.PickPairKey, core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("upsert_swap_rights: failed to upsert %s: %w", s.SwapID, err)
		}
	}
	return nil
}

// GetSwapRight returns a single swap right by id.
func GetSwapRight(ctx context.Context, q Querier, swapID string) (SwapRight, error) {
	var s SwapRight
	var active int
	var updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT swap_id, pick_id_a, pick_id_b, year, round, owner_team, active, pick_pair_key, updated_at
		FROM swap_rights WHERE swap_id = ?
	`, swapID).Scan(&s.SwapID, &s.PickIDA, &s.PickIDB, &s.Year, &s.Round, &s.OwnerTeam, &active, &s.PickPairKey, &updatedAt)
	if err == sql.ErrNoRows {
		return s, core.NewNotFoundError("swap right", swapID)
	}
	if err != nil {
		return s, fmt.Errorf("get_swap_right: %w", err)
	}
	s.Active = active != 0
	s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return s, nil
}

// FindSwapRightByPairKey looks up an active swap right by its canonical pair
// key, used by SwapUniquenessRule to reject a duplicate.
func FindSwapRightByPairKey(ctx context.Context, q Querier, pairKey string) (*SwapRight, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT swap_id, pick_id_a, pick_id_b, year, round, owner_team, active, pick_pair_key, updated_at
		FROM swap_rights WHERE pick_pair_key = ? AND active = 1
	`, pairKey)
	if err != nil {
		return nil, fmt.Errorf("find_swap_right_by_pair_key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	var r SwapRight
	var active int
	var updatedAt string
	if err := rows.Scan(&r.SwapID, &r.PickIDA, &r.PickIDB, &r.Year, &r.Round, &r.OwnerTeam, &active, &r.PickPairKey, &updatedAt); err != nil {
		return nil, fmt.Errorf("find_swap_right_by_pair_key: scan: %w", err)
	}
	r.Active = active != 0
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}
