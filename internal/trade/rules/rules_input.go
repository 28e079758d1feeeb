package rules

import (
	"context"
	"fmt"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// DeadlineRule enforces that the current date has not passed the
// configured trade deadline.
type DeadlineRule struct{}

func (DeadlineRule) Priority() int { return 10 }
func (DeadlineRule) Name() string  { return "DeadlineRule" }

func (DeadlineRule) Validate(_ context.Context, _ DealView, tctx *Context) error {
	if tctx.TradeRules.TradeDeadline == "" {
		return nil
	}
	if tctx.CurrentDate > tctx.TradeRules.TradeDeadline {
		return core.NewTradeError(core.ErrDealExpired, "current date is past the trade deadline", map[string]any{
			"current_date":   tctx.CurrentDate,
			"trade_deadline": tctx.TradeRules.TradeDeadline,
		})
	}
	return nil
}

// TeamLegsRule requires every declared team to have a non-empty leg and
// every asset's to_team to be one of the declared teams.
type TeamLegsRule struct{}

func (TeamLegsRule) Priority() int { return 20 }
func (TeamLegsRule) Name() string  { return "TeamLegsRule" }

func (TeamLegsRule) Validate(_ context.Context, deal DealView, _ *Context) error {
	teams := deal.Teams()
	teamSet := map[string]bool{}
	for _, t := range teams {
		teamSet[t] = true
	}

	for _, t := range teams {
		assets := deal.AssetsForTeam(t)
		if len(assets) == 0 {
			return core.NewTradeError(core.ErrInvalidInput, "team has an empty leg", map[string]any{"team": t})
		}
		for _, a := range assets {
			if a.ToTeam() == "" || a.ToTeam() == t {
				return core.NewTradeError(core.ErrInvalidInput, "asset has an invalid to_team", map[string]any{
					"team": t, "asset": a.Key(),
				})
			}
			if !teamSet[a.ToTeam()] {
				return core.NewTradeError(core.ErrInvalidInput, "asset to_team is not a declared participant", map[string]any{
					"team": t, "asset": a.Key(), "to_team": a.ToTeam(),
				})
			}
		}
	}
	return nil
}

// DuplicateAssetRule rejects a deal where the same asset key appears more
// than once across all legs.
type DuplicateAssetRule struct{}

func (DuplicateAssetRule) Priority() int { return 30 }
func (DuplicateAssetRule) Name() string  { return "DuplicateAssetRule" }

func (DuplicateAssetRule) Validate(_ context.Context, deal DealView, _ *Context) error {
	seen := map[string]bool{}
	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			if seen[a.Key()] {
				return core.NewTradeError(core.ErrInvalidInput, "asset appears more than once in the deal", map[string]any{
					"asset": a.Key(),
				})
			}
			seen[a.Key()] = true
		}
	}
	return nil
}

// PickProtectionSchemaRule validates the shape of every protection payload
// attached to a pick asset.
type PickProtectionSchemaRule struct{}

func (PickProtectionSchemaRule) Priority() int { return 33 }
func (PickProtectionSchemaRule) Name() string  { return "PickProtectionSchemaRule" }

func (PickProtectionSchemaRule) Validate(_ context.Context, deal DealView, _ *Context) error {
	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			p := a.Protection()
			if p == nil {
				continue
			}
			if p.Type != "TOP_N" {
				return core.NewTradeError(core.ErrProtectionInvalid, "protection type must be TOP_N", map[string]any{"asset": a.Key()})
			}
			if p.N < 1 || p.N > 30 {
				return core.NewTradeError(core.ErrProtectionInvalid, "protection n must be in [1,30]", map[string]any{"asset": a.Key(), "n": p.N})
			}
			if p.Compensation == nil {
				return core.NewTradeError(core.ErrProtectionInvalid, "protection requires a numeric compensation value", map[string]any{"asset": a.Key()})
			}
		}
	}
	return nil
}

// SwapUniquenessRule requires every swap asset's id to be the canonical pair
// key of its two picks, and rejects a deal that would create a second
// active swap right on the same pair.
type SwapUniquenessRule struct{}

func (SwapUniquenessRule) Priority() int { return 35 }
func (SwapUniquenessRule) Name() string  { return "SwapUniquenessRule" }

func (r SwapUniquenessRule) Validate(ctx context.Context, deal DealView, tctx *Context) error {
	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() != "swap" {
				continue
			}
			pa, pb := a.SwapPickIDs()
			want := ids.ComputeSwapPairKey(pa, pb)
			if a.SwapID() != want {
				return core.NewTradeError(core.ErrSwapInvalid, "swap id is not canonical", map[string]any{
					"asset": a.Key(), "expected": want,
				})
			}

			existing, err := repository.FindSwapRightByPairKey(ctx, tctx.Tx, want)
			if err != nil {
				return fmt.Errorf("SwapUniquenessRule: %w", err)
			}
			if existing != nil && existing.SwapID != a.SwapID() {
				return core.NewTradeError(core.ErrSwapInvalid, "an active swap right already exists for this pick pair", map[string]any{
					"asset": a.Key(), "existing_swap_id": existing.SwapID,
				})
			}
		}
	}
	return nil
}
