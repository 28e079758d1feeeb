package trade

import (
	"encoding/json"
	"fmt"
	"sort"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/trade/rules"
)

var (
	_ rules.AssetView = Asset{}
	_ rules.DealView  = (*Deal)(nil)
)

// RawProtection is the wire shape of a pick's TOP_N protection payload.
type RawProtection struct {
	Type         string `json:"type"`
	N            int    `json:"n"`
	Compensation any    `json:"compensation"`
}

// RawAsset is the wire shape of one asset within a deal leg, before
// parse_deal resolves it into a typed Asset.
type RawAsset struct {
	Kind         string         `json:"kind"`
	ToTeam       string         `json:"to_team,omitempty"`
	PlayerID     string         `json:"player_id,omitempty"`
	PickID       string         `json:"pick_id,omitempty"`
	SwapID       string         `json:"swap_id,omitempty"`
	SwapPickA    string         `json:"swap_pick_a,omitempty"`
	SwapPickB    string         `json:"swap_pick_b,omitempty"`
	FixedAssetID string         `json:"fixed_asset_id,omitempty"`
	Protection   *RawProtection `json:"protection,omitempty"`
}

// RawDeal is the wire shape parse_deal consumes: an ordered team list and,
// for each team, an ordered leg of assets it sends out.
type RawDeal struct {
	Teams     []string              `json:"teams"`
	Legs      map[string][]RawAsset `json:"legs"`
	DraftYear int                   `json:"draft_year"`
}

// Deal is the parsed, validated in-memory form of a trade, implementing
// rules.DealView so the rules engine can validate it without importing this
// package.
type Deal struct {
	teams     []string
	legs      map[string][]Asset
	draftYear int
}

func (d *Deal) Teams() []string { return d.teams }
func (d *Deal) DraftYear() int  { return d.draftYear }

func (d *Deal) AssetsForTeam(team string) []rules.AssetView {
	assets := d.legs[team]
	out := make([]rules.AssetView, len(assets))
	for i, a := range assets {
		out[i] = a
	}
	return out
}

// Legs exposes the concrete per-team asset slices for apply_deal and
// canonicalize_deal, which need Asset rather than the narrower AssetView.
func (d *Deal) Legs() map[string][]Asset { return d.legs }

// ParseDeal decodes and validates raw per spec §4.6's parse_deal rules:
// unknown kinds, missing per-variant identifiers, missing to_team in a
// 3+-team deal, invalid protection payloads, and non-canonical swap ids are
// all rejected here before the deal ever reaches the rules engine.
func ParseDeal(raw []byte) (*Deal, error) {
	var rd RawDeal
	if err := json.Unmarshal(raw, &rd); err != nil {
		return nil, core.NewTradeError(core.ErrInvalidInput, "malformed deal payload", map[string]any{"error": err.Error()})
	}
	if len(rd.Teams) < 2 {
		return nil, core.NewTradeError(core.ErrInvalidInput, "a deal requires at least two teams", nil)
	}

	teamSet := map[string]bool{}
	for _, t := range rd.Teams {
		teamSet[t] = true
	}
	bilateral := len(rd.Teams) == 2

	legs := make(map[string][]Asset, len(rd.Teams))
	for _, team := range rd.Teams {
		rawAssets := rd.Legs[team]
		parsed := make([]Asset, 0, len(rawAssets))
		for _, ra := range rawAssets {
			a, err := parseAsset(ra, team, teamSet, bilateral)
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, a)
		}
		legs[team] = parsed
	}

	return &Deal{teams: rd.Teams, legs: legs, draftYear: rd.DraftYear}, nil
}

func parseAsset(ra RawAsset, fromTeam string, teamSet map[string]bool, bilateral bool) (Asset, error) {
	toTeam := ra.ToTeam
	if toTeam == "" {
		if bilateral {
			for t := range teamSet {
				if t != fromTeam {
					toTeam = t
				}
			}
		} else {
			return Asset{}, core.NewTradeError(core.ErrMissingToTeam, "asset in a multi-team deal must declare to_team", map[string]any{
				"from_team": fromTeam,
			})
		}
	}

	a := Asset{toTeam: toTeam}

	switch Kind(ra.Kind) {
	case KindPlayer:
		if ra.PlayerID == "" {
			return Asset{}, core.NewTradeError(core.ErrInvalidInput, "player asset missing player_id", map[string]any{"from_team": fromTeam})
		}
		a.kind = KindPlayer
		a.playerID = ra.PlayerID

	case KindPick:
		if ra.PickID == "" {
			return Asset{}, core.NewTradeError(core.ErrInvalidInput, "pick asset missing pick_id", map[string]any{"from_team": fromTeam})
		}
		a.kind = KindPick
		a.pickID = ra.PickID
		if ra.Protection != nil {
			if err := validateProtection(ra.Protection); err != nil {
				return Asset{}, err
			}
			a.protection = &repository.PickProtection{Type: ra.Protection.Type, N: ra.Protection.N, Compensation: ra.Protection.Compensation}
		}

	case KindSwap:
		if ra.SwapPickA == "" || ra.SwapPickB == "" {
			return Asset{}, core.NewTradeError(core.ErrInvalidInput, "swap asset missing swap_pick_a/swap_pick_b", map[string]any{"from_team": fromTeam})
		}
		want := ids.ComputeSwapPairKey(ra.SwapPickA, ra.SwapPickB)
		if ra.SwapID != "" && ra.SwapID != want {
			return Asset{}, core.NewTradeError(core.ErrSwapInvalid, "swap id is not canonical", map[string]any{
				"swap_id": ra.SwapID, "expected": want,
			})
		}
		a.kind = KindSwap
		a.swapID = want
		a.swapPickA, a.swapPickB = ra.SwapPickA, ra.SwapPickB

	case KindFixedAsset:
		if ra.FixedAssetID == "" {
			return Asset{}, core.NewTradeError(core.ErrInvalidInput, "fixed_asset missing fixed_asset_id", map[string]any{"from_team": fromTeam})
		}
		a.kind = KindFixedAsset
		a.assetID = ra.FixedAssetID

	default:
		return Asset{}, core.NewTradeError(core.ErrInvalidInput, "unknown asset kind", map[string]any{"kind": ra.Kind})
	}

	return a, nil
}

func validateProtection(p *RawProtection) error {
	if p.Type != "TOP_N" {
		return core.NewTradeError(core.ErrProtectionInvalid, "protection type must be TOP_N", nil)
	}
	if p.N < 1 || p.N > 30 {
		return core.NewTradeError(core.ErrProtectionInvalid, "protection n must be in [1,30]", map[string]any{"n": p.N})
	}
	if p.Compensation == nil {
		return core.NewTradeError(core.ErrProtectionInvalid, "protection requires a numeric compensation value", nil)
	}
	return nil
}

// CanonicalizeDeal sorts teams and, within each team's leg, sorts assets by
// (variant_rank, to_team, identifier), returning the deterministic wire form
// create_committed_deal hashes and persists.
func CanonicalizeDeal(d *Deal) map[string]any {
	teams := append([]string(nil), d.teams...)
	sort.Strings(teams)

	legs := make(map[string]any, len(teams))
	for _, t := range teams {
		assets := append([]Asset(nil), d.legs[t]...)
		sort.SliceStable(assets, func(i, j int) bool {
			if variantRank(assets[i].kind) != variantRank(assets[j].kind) {
				return variantRank(assets[i].kind) < variantRank(assets[j].kind)
			}
			if assets[i].toTeam != assets[j].toTeam {
				return assets[i].toTeam < assets[j].toTeam
			}
			return assets[i].identifier() < assets[j].identifier()
		})

		rendered := make([]map[string]any, len(assets))
		for i, a := range assets {
			m := map[string]any{"kind": string(a.kind), "to_team": a.toTeam}
			switch a.kind {
			case KindPlayer:
				m["player_id"] = a.playerID
			case KindPick:
				m["pick_id"] = a.pickID
				if a.protection != nil {
					m["protection"] = map[string]any{"type": a.protection.Type, "n": a.protection.N, "compensation": a.protection.Compensation}
				}
			case KindSwap:
				m["swap_id"] = a.swapID
				m["swap_pick_a"] = a.swapPickA
				m["swap_pick_b"] = a.swapPickB
			case KindFixedAsset:
				m["fixed_asset_id"] = a.assetID
			}
			rendered[i] = m
		}
		legs[t] = rendered
	}

	return map[string]any{
		"teams":      teams,
		"legs":       legs,
		"draft_year": d.draftYear,
	}
}

// CanonicalDealJSON renders CanonicalizeDeal's output as the canonical JSON
// bytes create_committed_deal hashes via core.SHA256Hex.
func CanonicalDealJSON(d *Deal) ([]byte, error) {
	raw, err := core.CanonicalJSON(CanonicalizeDeal(d))
	if err != nil {
		return nil, fmt.Errorf("canonical_deal_json: %w", err)
	}
	return raw, nil
}
