package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
)

// UpsertFixedAssets inserts or updates opaque tradable fixed assets (cash,
// future considerations, etc. — spec §3).
func UpsertFixedAssets(ctx context.Context, q Querier, assets []FixedAsset, now time.Time) error {
	for _, a := range assets {
		attrs, err := json.Marshal(a.Attrs)
		if err != nil {
			return fmt.Errorf("upsert_fixed_assets: failed to encode attrs for %s: %w", a.AssetID, err)
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO fixed_assets (asset_id, label, value, owner_team, source_pick_id, draft_year, attrs, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(asset_id) DO UPDATE SET
				label = excluded.label,
				value = excluded.value,
				owner_team = excluded.owner_team,
				source_pick_id = excluded.source_pick_id,
				draft_year = excluded.draft_year,
				attrs = excluded.attrs,
				updated_at = excluded.updated_at
		`, a.AssetID, a.Label, a.Value, a.OwnerTeam, a.SourcePickID, a.DraftYear, string(attrs), core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("upsert_fixed_assets: failed to upsert %s: %w", a.AssetID, err)
		}
	}
	return nil
}

// GetFixedAsset returns a single fixed asset, or core.NotFoundError.
func GetFixedAsset(ctx context.Context, q Querier, assetID string) (FixedAsset, error) {
	var a FixedAsset
	var attrs string
	var updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT asset_id, label, value, owner_team, source_pick_id, draft_year, attrs, updated_at
		FROM fixed_assets WHERE asset_id = ?
	`, assetID).Scan(&a.AssetID, &a.Label, &a.Value, &a.OwnerTeam, &a.SourcePickID, &a.DraftYear, &attrs, &updatedAt)
	if err == sql.ErrNoRows {
		return a, core.NewNotFoundError("fixed asset", assetID)
	}
	if err != nil {
		return a, fmt.Errorf("get_fixed_asset: %w", err)
	}
	_ = json.Unmarshal([]byte(attrs), &a.Attrs)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}

// TransferFixedAsset reassigns owner_team, the raw primitive the trade-apply
// step uses (ownership rules are validated upstream by the trade engine).
func TransferFixedAsset(ctx context.Context, q Querier, assetID, toTeam string, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE fixed_assets SET owner_team = ?, updated_at = ? WHERE asset_id = ?
	`, toTeam, core.FormatTimestamp(now), assetID)
	if err != nil {
		return fmt.Errorf("transfer_fixed_asset: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("fixed asset", assetID)
	}
	return nil
}

// TransferPick reassigns owner_team on a draft pick, optionally setting (or
// clearing, with protection == nil) its protection payload in the same
// statement.
func TransferPick(ctx context.Context, q Querier, pickID, toTeam string, protection *PickProtection, now time.Time) error {
	var protectionJSON sql.NullString
	if protection != nil {
		b, err := json.Marshal(protection)
		if err != nil {
			return fmt.Errorf("transfer_pick: failed to encode protection: %w", err)
		}
		protectionJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		UPDATE draft_picks SET owner_team = ?, protection = ?, updated_at = ? WHERE pick_id = ?
	`, toTeam, protectionJSON, core.FormatTimestamp(now), pickID)
	if err != nil {
		return fmt.Errorf("transfer_pick: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("draft pick", pickID)
	}
	return nil
}

// TransferSwapRight reassigns owner_team on a swap right.
func TransferSwapRight(ctx context.Context, q Querier, swapID, toTeam string, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE swap_rights SET owner_team = ?, updated_at = ? WHERE swap_id = ?
	`, toTeam, core.FormatTimestamp(now), swapID)
	if err != nil {
		return fmt.Errorf("transfer_swap_right: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("swap right", swapID)
	}
	return nil
}

// GetTradeAssetsSnapshot loads the current ownership state for exactly the
// asset keys referenced by a deal, for use by create_committed_deal's
// assets_hash computation and by the trade rules engine (spec §4.2, §4.8).
func GetTradeAssetsSnapshot(ctx context.Context, q Querier, playerIDs, pickIDs, swapIDs, fixedAssetIDs []string) (TradeAssetsSnapshot, error) {
	snap := TradeAssetsSnapshot{
		Players:   map[string]RosterEntry{},
		Picks:     map[string]DraftPick{},
		Swaps:     map[string]SwapRight{},
		Fixed:     map[string]FixedAsset{},
		Contracts: map[string]Contract{},
	}

	for _, id := range playerIDs {
		entry, err := GetRosterEntry(ctx, q, id)
		if err != nil {
			return snap, fmt.Errorf("get_trade_assets_snapshot: player %s: %w", id, err)
		}
		snap.Players[id] = entry

		contract, err := GetActiveContractForPlayer(ctx, q, id)
		if err == nil {
			snap.Contracts[id] = contract
		} else if !core.IsNotFound(err) {
			return snap, fmt.Errorf("get_trade_assets_snapshot: contract for %s: %w", id, err)
		}
	}

	for _, id := range pickIDs {
		pick, err := GetDraftPick(ctx, q, id)
		if err != nil {
			return snap, fmt.Errorf("get_trade_assets_snapshot: pick %s: %w", id, err)
		}
		snap.Picks[id] = pick
	}

	for _, id := range swapIDs {
		swap, err := GetSwapRight(ctx, q, id)
		if err != nil {
			return snap, fmt.Errorf("get_trade_assets_snapshot: swap %s: %w", id, err)
		}
		snap.Swaps[id] = swap
	}

	for _, id := range fixedAssetIDs {
		asset, err := GetFixedAsset(ctx, q, id)
		if err != nil {
			return snap, fmt.Errorf("get_trade_assets_snapshot: fixed asset %s: %w", id, err)
		}
		snap.Fixed[id] = asset
	}

	return snap, nil
}
