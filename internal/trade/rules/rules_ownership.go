package rules

import (
	"context"
	"fmt"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// AssetLockRule rejects an asset already locked by a different live deal.
// Expired locks are silently released on access, per spec §7.
type AssetLockRule struct{}

func (AssetLockRule) Priority() int { return 40 }
func (AssetLockRule) Name() string  { return "AssetLockRule" }

func (AssetLockRule) Validate(ctx context.Context, deal DealView, tctx *Context) error {
	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			locks, err := repository.ListLocksForAsset(ctx, tctx.Tx, a.Key())
			if err != nil {
				return fmt.Errorf("AssetLockRule: %w", err)
			}
			for _, l := range locks {
				if l.DealID == tctx.DealID {
					continue
				}
				if l.ExpiresAt.Before(tctx.now()) {
					if err := repository.ReleaseLock(ctx, tctx.Tx, l.AssetKey, l.DealID); err != nil {
						return fmt.Errorf("AssetLockRule: %w", err)
					}
					continue
				}
				status, err := repository.GetTradeAgreementStatus(ctx, tctx.Tx, l.DealID)
				if err != nil && !core.IsNotFound(err) {
					return fmt.Errorf("AssetLockRule: %w", err)
				}
				if status == "ACTIVE" {
					return core.NewTradeError(core.ErrAssetLocked, "asset is locked by another live deal", map[string]any{
						"asset": a.Key(), "deal_id": l.DealID,
					})
				}
			}
		}
	}
	return nil
}

// OwnershipRule requires every asset to currently belong to the sending
// team, and that protection changes don't conflict with an existing
// incompatible protection payload.
type OwnershipRule struct{}

func (OwnershipRule) Priority() int { return 50 }
func (OwnershipRule) Name() string  { return "OwnershipRule" }

func (OwnershipRule) Validate(ctx context.Context, deal DealView, tctx *Context) error {
	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			switch a.Kind() {
			case "player":
				entry, err := repository.GetRosterEntry(ctx, tctx.Tx, a.PlayerID())
				if err != nil {
					return core.NewTradeError(core.ErrPlayerNotOwned, "player not found", map[string]any{"player_id": a.PlayerID()})
				}
				if entry.TeamID != t {
					return core.NewTradeError(core.ErrPlayerNotOwned, "player is not on the sending team", map[string]any{
						"player_id": a.PlayerID(), "sending_team": t, "actual_team": entry.TeamID,
					})
				}
			case "pick":
				pick, err := repository.GetDraftPick(ctx, tctx.Tx, a.PickID())
				if err != nil {
					return core.NewTradeError(core.ErrPickNotOwned, "pick not found", map[string]any{"pick_id": a.PickID()})
				}
				if pick.OwnerTeam != t {
					return core.NewTradeError(core.ErrPickNotOwned, "pick is not owned by the sending team", map[string]any{
						"pick_id": a.PickID(), "sending_team": t, "actual_owner": pick.OwnerTeam,
					})
				}
				if np := a.Protection(); np != nil && pick.Protection != nil {
					if np.Type != pick.Protection.Type || np.N != pick.Protection.N {
						return core.NewTradeError(core.ErrProtectionConflict, "new protection conflicts with existing protection", map[string]any{
							"pick_id": a.PickID(),
						})
					}
				}
			case "swap":
				pa, pb := a.SwapPickIDs()
				swapID := a.SwapID()
				var owner string
				existing, err := repository.GetSwapRight(ctx, tctx.Tx, swapID)
				if err == nil {
					owner = existing.OwnerTeam
				} else if core.IsNotFound(err) {
					pick, perr := repository.GetDraftPick(ctx, tctx.Tx, pa)
					if perr != nil {
						pick, perr = repository.GetDraftPick(ctx, tctx.Tx, pb)
					}
					if perr != nil {
						return core.NewTradeError(core.ErrSwapNotOwned, "swap right's picks not found", map[string]any{"swap_id": swapID})
					}
					owner = pick.OwnerTeam
				} else {
					return fmt.Errorf("OwnershipRule: %w", err)
				}
				if owner != t {
					return core.NewTradeError(core.ErrSwapNotOwned, "swap right is not owned by the sending team", map[string]any{
						"swap_id": swapID, "sending_team": t, "actual_owner": owner,
					})
				}
			case "fixed_asset":
				asset, err := repository.GetFixedAsset(ctx, tctx.Tx, a.AssetID())
				if err != nil {
					return core.NewTradeError(core.ErrFixedAssetNotFound, "fixed asset not found", map[string]any{"asset_id": a.AssetID()})
				}
				if asset.OwnerTeam != t {
					return core.NewTradeError(core.ErrFixedAssetNotOwned, "fixed asset is not owned by the sending team", map[string]any{
						"asset_id": a.AssetID(), "sending_team": t, "actual_owner": asset.OwnerTeam,
					})
				}
			}
		}
	}
	return nil
}

// RosterLimitRule requires that no team exceeds the maximum roster size
// after the deal is applied.
type RosterLimitRule struct{}

const defaultMaxRosterSize = 15

func (RosterLimitRule) Priority() int { return 60 }
func (RosterLimitRule) Name() string  { return "RosterLimitRule" }

func (RosterLimitRule) Validate(_ context.Context, deal DealView, tctx *Context) error {
	max := tctx.MaxRosterSize
	if max <= 0 {
		max = defaultMaxRosterSize
	}

	delta := map[string]int{}
	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() != "player" {
				continue
			}
			delta[t]--
			delta[a.ToTeam()]++
		}
	}

	for team, d := range delta {
		post := tctx.RosterSize[team] + d
		if post > max {
			return core.NewTradeError(core.ErrInvalidInput, "team would exceed the maximum roster size", map[string]any{
				"team": team, "post_roster_size": post, "max": max,
			})
		}
	}
	return nil
}
