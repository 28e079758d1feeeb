package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// assetsSnapshotIDs collects the distinct ids-per-kind a deal references, for
// get_trade_assets_snapshot.
func assetsSnapshotIDs(d *Deal) (players, picks, swaps, fixed []string) {
	for _, t := range d.teams {
		for _, a := range d.legs[t] {
			switch a.kind {
			case KindPlayer:
				players = append(players, a.playerID)
			case KindPick:
				picks = append(picks, a.pickID)
			case KindSwap:
				swaps = append(swaps, a.swapID)
			case KindFixedAsset:
				fixed = append(fixed, a.assetID)
			}
		}
	}
	return
}

// computeAssetsHash hashes the canonical deal payload plus a lexicographically
// sorted ownership snapshot, per spec §4.8 step 2.
func computeAssetsHash(d *Deal, snap repository.TradeAssetsSnapshot) (string, error) {
	dealPayload := CanonicalizeDeal(d)

	playerIDs := make([]string, 0, len(snap.Players))
	for id := range snap.Players {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)
	players := make([]map[string]any, 0, len(playerIDs))
	for _, id := range playerIDs {
		e := snap.Players[id]
		players = append(players, map[string]any{"player_id": id, "team_id": e.TeamID, "salary_amount": e.SalaryAmount})
	}

	pickIDs := make([]string, 0, len(snap.Picks))
	for id := range snap.Picks {
		pickIDs = append(pickIDs, id)
	}
	sort.Strings(pickIDs)
	picks := make([]map[string]any, 0, len(pickIDs))
	for _, id := range pickIDs {
		p := snap.Picks[id]
		picks = append(picks, map[string]any{"pick_id": id, "owner_team": p.OwnerTeam})
	}

	swapIDs := make([]string, 0, len(snap.Swaps))
	for id := range snap.Swaps {
		swapIDs = append(swapIDs, id)
	}
	sort.Strings(swapIDs)
	swaps := make([]map[string]any, 0, len(swapIDs))
	for _, id := range swapIDs {
		s := snap.Swaps[id]
		swaps = append(swaps, map[string]any{"swap_id": id, "owner_team": s.OwnerTeam})
	}

	fixedIDs := make([]string, 0, len(snap.Fixed))
	for id := range snap.Fixed {
		fixedIDs = append(fixedIDs, id)
	}
	sort.Strings(fixedIDs)
	fixed := make([]map[string]any, 0, len(fixedIDs))
	for _, id := range fixedIDs {
		f := snap.Fixed[id]
		fixed = append(fixed, map[string]any{"asset_id": id, "owner_team": f.OwnerTeam, "value": f.Value})
	}

	payload := map[string]any{
		"deal":    dealPayload,
		"players": players,
		"picks":   picks,
		"swaps":   swaps,
		"fixed":   fixed,
	}
	raw, err := core.CanonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("compute_assets_hash: %w", err)
	}
	return core.SHA256Hex(raw), nil
}

// CreateCommittedDeal implements create_committed_deal (spec §4.8): it
// canonicalizes and hashes the deal, persists a trade_agreements row, and
// locks every referenced asset. A lock conflict is reported as
// DEAL_INVALIDATED to the caller, per spec.
func CreateCommittedDeal(ctx context.Context, lc *leaguectx.Context, dealID string, d *Deal, validDays int) error {
	if validDays <= 0 {
		validDays = 2
	}

	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		players, picks, swaps, fixed := assetsSnapshotIDs(d)
		snap, err := repository.GetTradeAssetsSnapshot(ctx, tx, players, picks, swaps, fixed)
		if err != nil {
			return fmt.Errorf("create_committed_deal: %w", err)
		}

		hash, err := computeAssetsHash(d, snap)
		if err != nil {
			return err
		}

		dealJSON, err := CanonicalDealJSON(d)
		if err != nil {
			return err
		}

		now := lc.Now
		expiresAt := now.AddDate(0, 0, validDays)
		if err := repository.InsertTradeAgreement(ctx, tx, repository.TradeAgreement{
			DealID: dealID, DealPayload: string(dealJSON), AssetsHash: hash,
			CreatedAt: now, ExpiresAt: expiresAt, Status: "ACTIVE",
		}); err != nil {
			return fmt.Errorf("create_committed_deal: %w", err)
		}

		for _, t := range d.teams {
			for _, a := range d.legs[t] {
				live, err := repository.FindLiveLockForAsset(ctx, tx, a.Key(), dealID, now)
				if err != nil {
					return fmt.Errorf("create_committed_deal: %w", err)
				}
				if live != nil {
					return core.NewTradeError(core.ErrDealInvalidated, "asset already locked by a different live deal", map[string]any{
						"asset": a.Key(), "deal_id": live.DealID,
					})
				}
				if err := repository.InsertAssetLock(ctx, tx, repository.AssetLock{
					AssetKey: a.Key(), DealID: dealID, ExpiresAt: expiresAt,
				}); err != nil {
					return core.NewTradeError(core.ErrDealInvalidated, "failed to lock asset", map[string]any{"asset": a.Key()})
				}
			}
		}
		return nil
	})
}

// VerifyCommittedDeal implements verify_committed_deal (spec §4.8): checks
// status and expiry, recomputes assets_hash to detect ownership drift, and
// confirms every asset still carries this deal's lock.
func VerifyCommittedDeal(ctx context.Context, lc *leaguectx.Context, dealID string, d *Deal) error {
	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		agreement, err := repository.GetTradeAgreement(ctx, tx, dealID)
		if err != nil {
			if core.IsNotFound(err) {
				return core.NewTradeError(core.ErrDealInvalidated, "trade agreement not found", map[string]any{"deal_id": dealID})
			}
			return fmt.Errorf("verify_committed_deal: %w", err)
		}

		switch agreement.Status {
		case "EXECUTED":
			return core.NewTradeError(core.ErrDealAlreadyExecuted, "deal has already been executed", map[string]any{"deal_id": dealID})
		case "EXPIRED":
			return core.NewTradeError(core.ErrDealExpired, "deal has expired", map[string]any{"deal_id": dealID})
		case "ACTIVE":
			// continue below
		default:
			return core.NewTradeError(core.ErrDealInvalidated, "deal is no longer active", map[string]any{"deal_id": dealID, "status": agreement.Status})
		}

		if lc.Now.After(agreement.ExpiresAt) {
			if err := repository.SetTradeAgreementStatus(ctx, tx, dealID, "EXPIRED"); err != nil {
				return fmt.Errorf("verify_committed_deal: %w", err)
			}
			if err := repository.ReleaseLocksForDeal(ctx, tx, dealID); err != nil {
				return fmt.Errorf("verify_committed_deal: %w", err)
			}
			return core.NewTradeError(core.ErrDealExpired, "deal has expired", map[string]any{"deal_id": dealID})
		}

		players, picks, swaps, fixed := assetsSnapshotIDs(d)
		snap, err := repository.GetTradeAssetsSnapshot(ctx, tx, players, picks, swaps, fixed)
		if err != nil {
			return fmt.Errorf("verify_committed_deal: %w", err)
		}
		hash, err := computeAssetsHash(d, snap)
		if err != nil {
			return err
		}
		if hash != agreement.AssetsHash {
			if err := repository.SetTradeAgreementStatus(ctx, tx, dealID, "INVALIDATED"); err != nil {
				return fmt.Errorf("verify_committed_deal: %w", err)
			}
			if err := repository.ReleaseLocksForDeal(ctx, tx, dealID); err != nil {
				return fmt.Errorf("verify_committed_deal: %w", err)
			}
			return core.NewTradeError(core.ErrDealInvalidated, "underlying assets changed since agreement", map[string]any{"deal_id": dealID})
		}

		locks, err := repository.ListLocksForDeal(ctx, tx, dealID)
		if err != nil {
			return fmt.Errorf("verify_committed_deal: %w", err)
		}
		locked := make(map[string]bool, len(locks))
		for _, l := range locks {
			locked[l.AssetKey] = true
		}
		for _, t := range d.teams {
			for _, a := range d.legs[t] {
				if !locked[a.Key()] {
					if err := repository.SetTradeAgreementStatus(ctx, tx, dealID, "INVALIDATED"); err != nil {
						return fmt.Errorf("verify_committed_deal: %w", err)
					}
					return core.NewTradeError(core.ErrDealInvalidated, "asset lock missing", map[string]any{"deal_id": dealID, "asset": a.Key()})
				}
			}
		}
		return nil
	})
}

// MarkExecuted implements mark_executed (spec §4.8): transitions status to
// EXECUTED and releases every lock, inside one transaction.
func MarkExecuted(ctx context.Context, lc *leaguectx.Context, dealID string) error {
	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		if err := repository.SetTradeAgreementStatus(ctx, tx, dealID, "EXECUTED"); err != nil {
			return fmt.Errorf("mark_executed: %w", err)
		}
		if err := repository.ReleaseLocksForDeal(ctx, tx, dealID); err != nil {
			return fmt.Errorf("mark_executed: %w", err)
		}
		return nil
	})
}

// GCExpiredAgreements implements gc_expired_agreements(today): sweeps every
// ACTIVE agreement past its expiry, transitioning it to EXPIRED and
// releasing its locks. Returns the count of agreements swept.
func GCExpiredAgreements(ctx context.Context, lc *leaguectx.Context, today time.Time) (int, error) {
	swept := 0
	err := lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		active, err := repository.ListActiveTradeAgreements(ctx, tx)
		if err != nil {
			return fmt.Errorf("gc_expired_agreements: %w", err)
		}
		for _, a := range active {
			if !today.After(a.ExpiresAt) {
				continue
			}
			if err := repository.SetTradeAgreementStatus(ctx, tx, a.DealID, "EXPIRED"); err != nil {
				return fmt.Errorf("gc_expired_agreements: %w", err)
			}
			if err := repository.ReleaseLocksForDeal(ctx, tx, a.DealID); err != nil {
				return fmt.Errorf("gc_expired_agreements: %w", err)
			}
			swept++
		}
		return nil
	})
	return swept, err
}

// DecodeDealPayload parses a persisted trade_agreements.deal_payload column
// back into a *Deal, used when verifying or applying an agreement loaded
// from storage rather than freshly parsed from caller input.
func DecodeDealPayload(payload string) (*Deal, error) {
	var canon struct {
		Teams     []string                    `json:"teams"`
		Legs      map[string][]map[string]any `json:"legs"`
		DraftYear int                         `json:"draft_year"`
	}
	if err := json.Unmarshal([]byte(payload), &canon); err != nil {
		return nil, fmt.Errorf("decode_deal_payload: %w", err)
	}

	rd := RawDeal{Teams: canon.Teams, DraftYear: canon.DraftYear, Legs: map[string][]RawAsset{}}
	for team, assets := range canon.Legs {
		for _, m := range assets {
			ra := RawAsset{Kind: fmt.Sprint(m["kind"])}
			if v, ok := m["to_team"].(string); ok {
				ra.ToTeam = v
			}
			if v, ok := m["player_id"].(string); ok {
				ra.PlayerID = v
			}
			if v, ok := m["pick_id"].(string); ok {
				ra.PickID = v
			}
			if v, ok := m["swap_id"].(string); ok {
				ra.SwapID = v
			}
			if v, ok := m["swap_pick_a"].(string); ok {
				ra.SwapPickA = v
			}
			if v, ok := m["swap_pick_b"].(string); ok {
				ra.SwapPickB = v
			}
			if v, ok := m["fixed_asset_id"].(string); ok {
				ra.FixedAssetID = v
			}
			if v, ok := m["protection"].(map[string]any); ok {
				n, _ := v["n"].(float64)
				ra.Protection = &RawProtection{Type: fmt.Sprint(v["type"]), N: int(n), Compensation: v["compensation"]}
			}
			rd.Legs[team] = append(rd.Legs[team], ra)
		}
	}

	raw, err := json.Marshal(rd)
	if err != nil {
		return nil, fmt.Errorf("decode_deal_payload: %w", err)
	}
	return ParseDeal(raw)
}
