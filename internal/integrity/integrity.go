// Package integrity implements the cross-table invariant checks named in
// spec.md §4.3, fanned out concurrently over one shared transaction with
// golang.org/x/sync/errgroup.
package integrity

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// ValidateIntegrity runs every check in spec §4.3 against tx, aggregating
// violations into a single *core.IntegrityError (capped at 10 items total).
// strictIDs toggles player-id canonical-form strictness the same way
// ids.NormalizePlayerID does.
func ValidateIntegrity(ctx context.Context, tx *repository.Tx, strictIDs bool) error {
	g, gctx := errgroup.WithContext(ctx)

	results := make([]*core.IntegrityError, 6)

	g.Go(func() error { results[0] = checkMeta(gctx, tx); return nil })
	g.Go(func() error { results[1] = checkPlayers(gctx, tx, strictIDs); return nil })
	g.Go(func() error { results[2] = checkRoster(gctx, tx); return nil })
	g.Go(func() error { results[3] = checkDraftPicks(gctx, tx); return nil })
	g.Go(func() error { results[4] = checkSwapRights(gctx, tx); return nil })
	g.Go(func() error { results[5] = checkFixedAssetsAndContracts(gctx, tx); return nil })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("validate_integrity: %w", err)
	}

	merged := core.MergeIntegrityErrors(results...)
	if len(merged.Violations) == 0 {
		return nil
	}
	return merged
}

func checkMeta(ctx context.Context, tx *repository.Tx) *core.IntegrityError {
	var version int
	err := tx.QueryRowContext(ctx, "SELECT schema_version FROM meta WHERE id = 1").Scan(&version)
	if err == sql.ErrNoRows {
		return core.NewIntegrityError("meta", []string{"meta row missing: schema not initialized"})
	}
	if err != nil {
		return core.NewIntegrityError("meta", []string{fmt.Sprintf("failed to read schema version: %v", err)})
	}
	if version <= 0 {
		return core.NewIntegrityError("meta", []string{fmt.Sprintf("schema_version %d is not positive", version)})
	}
	return nil
}

func checkPlayers(ctx context.Context, tx *repository.Tx, strict bool) *core.IntegrityError {
	rows, err := tx.QueryContext(ctx, "SELECT player_id FROM players")
	if err != nil {
		return core.NewIntegrityError("players", []string{fmt.Sprintf("failed to scan players: %v", err)})
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			violations = append(violations, fmt.Sprintf("scan error: %v", err))
			continue
		}
		if _, err := ids.NormalizePlayerID(id, strict, false); err != nil {
			violations = append(violations, fmt.Sprintf("player id %q: %v", id, err))
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return core.NewIntegrityError("players", violations)
}

func checkRoster(ctx context.Context, tx *repository.Tx) *core.IntegrityError {
	var violations []string

	rows, err := tx.QueryContext(ctx, `
		SELECT r.player_id, r.team_id
		FROM roster r LEFT JOIN players p ON p.player_id = r.player_id
		WHERE p.player_id IS NULL
	`)
	if err != nil {
		return core.NewIntegrityError("roster", []string{fmt.Sprintf("failed to check dangling roster rows: %v", err)})
	}
	for rows.Next() {
		var playerID, teamID string
		if err := rows.Scan(&playerID, &teamID); err == nil {
			violations = append(violations, fmt.Sprintf("roster row %s->%s references unknown player", playerID, teamID))
		}
	}
	rows.Close()

	var faExists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM teams WHERE team_id = 'FA'").Scan(&faExists); err != nil {
		violations = append(violations, fmt.Sprintf("failed to check FA team existence: %v", err))
	} else if faExists == 0 {
		violations = append(violations, "distinguished FA team row does not exist")
	}

	teamRows, err := tx.QueryContext(ctx, `
		SELECT DISTINCT r.team_id
		FROM roster r LEFT JOIN teams t ON t.team_id = r.team_id
		WHERE t.team_id IS NULL AND r.team_id != 'FA'
	`)
	if err != nil {
		violations = append(violations, fmt.Sprintf("failed to check roster team ids: %v", err))
	} else {
		for teamRows.Next() {
			var teamID string
			if err := teamRows.Scan(&teamID); err == nil {
				violations = append(violations, fmt.Sprintf("roster references unknown team %q", teamID))
			}
		}
		teamRows.Close()
	}

	if len(violations) == 0 {
		return nil
	}
	return core.NewIntegrityError("roster", violations)
}

func checkDraftPicks(ctx context.Context, tx *repository.Tx) *core.IntegrityError {
	rows, err := tx.QueryContext(ctx, `
		SELECT dp.pick_id, dp.round, dp.owner_team, dp.original_team,
			(SELECT COUNT(*) FROM teams t WHERE t.team_id = dp.owner_team) AS owner_exists,
			(SELECT COUNT(*) FROM teams t WHERE t.team_id = dp.original_team) AS original_exists
		FROM draft_picks dp
	`)
	if err != nil {
		return core.NewIntegrityError("draft_picks", []string{fmt.Sprintf("failed to scan draft picks: %v", err)})
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var pickID, ownerTeam, originalTeam string
		var round, ownerExists, originalExists int
		if err := rows.Scan(&pickID, &round, &ownerTeam, &originalTeam, &ownerExists, &originalExists); err != nil {
			violations = append(violations, fmt.Sprintf("scan error: %v", err))
			continue
		}
		if round != 1 && round != 2 {
			violations = append(violations, fmt.Sprintf("pick %s: round %d not in {1,2}", pickID, round))
		}
		if ownerExists == 0 {
			violations = append(violations, fmt.Sprintf("pick %s: owner team %q does not exist", pickID, ownerTeam))
		}
		if originalExists == 0 {
			violations = append(violations, fmt.Sprintf("pick %s: original team %q does not exist", pickID, originalTeam))
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return core.NewIntegrityError("draft_picks", violations)
}

func checkSwapRights(ctx context.Context, tx *repository.Tx) *core.IntegrityError {
	rows, err := tx.QueryContext(ctx, `
		SELECT s.swap_id, s.pick_id_a, s.pick_id_b, s.year, s.round, s.pick_pair_key,
			a.year, a.round, b.year, b.round
		FROM swap_rights s
		LEFT JOIN draft_picks a ON a.pick_id = s.pick_id_a
		LEFT JOIN draft_picks b ON b.pick_id = s.pick_id_b
	`)
	if err != nil {
		return core.NewIntegrityError("swap_rights", []string{fmt.Sprintf("failed to scan swap rights: %v", err)})
	}
	defer rows.Close()

	var violations []string
	seenPairKeys := map[string]int{}
	for rows.Next() {
		var swapID, pickA, pickB, pairKey string
		var year, round int
		var aYear, aRound, bYear, bRound sql.NullInt64
		if err := rows.Scan(&swapID, &pickA, &pickB, &year, &round, &pairKey, &aYear, &aRound, &bYear, &bRound); err != nil {
			violations = append(violations, fmt.Sprintf("scan error: %v", err))
			continue
		}
		if !aYear.Valid {
			violations = append(violations, fmt.Sprintf("swap %s: pick_id_a %q does not exist", swapID, pickA))
		} else if int(aYear.Int64) != year || int(aRound.Int64) != round {
			violations = append(violations, fmt.Sprintf("swap %s: pick_id_a year/round mismatch", swapID))
		}
		if !bYear.Valid {
			violations = append(violations, fmt.Sprintf("swap %s: pick_id_b %q does not exist", swapID, pickB))
		} else if int(bYear.Int64) != year || int(bRound.Int64) != round {
			violations = append(violations, fmt.Sprintf("swap %s: pick_id_b year/round mismatch", swapID))
		}
		seenPairKeys[pairKey]++
	}
	for key, count := range seenPairKeys {
		if count > 1 {
			violations = append(violations, fmt.Sprintf("pick_pair_key %q is not unique (%d rows)", key, count))
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return core.NewIntegrityError("swap_rights", violations)
}

func checkFixedAssetsAndContracts(ctx context.Context, tx *repository.Tx) *core.IntegrityError {
	var violations []string

	rows, err := tx.QueryContext(ctx, `
		SELECT fa.asset_id, fa.owner_team, fa.source_pick_id,
			(SELECT COUNT(*) FROM teams t WHERE t.team_id = fa.owner_team) AS owner_exists,
			(SELECT COUNT(*) FROM draft_picks dp WHERE dp.pick_id = fa.source_pick_id) AS pick_exists
		FROM fixed_assets fa
	`)
	if err != nil {
		violations = append(violations, fmt.Sprintf("failed to scan fixed assets: %v", err))
	} else {
		for rows.Next() {
			var assetID, ownerTeam string
			var sourcePick sql.NullString
			var ownerExists, pickExists int
			if err := rows.Scan(&assetID, &ownerTeam, &sourcePick, &ownerExists, &pickExists); err != nil {
				violations = append(violations, fmt.Sprintf("scan error: %v", err))
				continue
			}
			if ownerExists == 0 {
				violations = append(violations, fmt.Sprintf("fixed asset %s: owner team %q does not exist", assetID, ownerTeam))
			}
			if sourcePick.Valid && pickExists == 0 {
				violations = append(violations, fmt.Sprintf("fixed asset %s: source_pick_id %q does not exist", assetID, sourcePick.String))
			}
		}
		rows.Close()
	}

	contractRows, err := tx.QueryContext(ctx, `
		SELECT player_id, COUNT(*) FROM contracts WHERE is_active = 1 GROUP BY player_id HAVING COUNT(*) > 1
	`)
	if err != nil {
		violations = append(violations, fmt.Sprintf("failed to check active contracts: %v", err))
	} else {
		for contractRows.Next() {
			var playerID string
			var count int
			if err := contractRows.Scan(&playerID, &count); err == nil {
				violations = append(violations, fmt.Sprintf("player %s has %d active contracts, expected at most 1", playerID, count))
			}
		}
		contractRows.Close()
	}

	if len(violations) == 0 {
		return nil
	}
	return core.NewIntegrityError("fixed_assets_and_contracts", violations)
}
