// Package trade implements the deal model, trade-agreement two-phase
// commit, and apply pipeline of spec.md §4.6-§4.9. Rule validation itself
// lives in internal/trade/rules to avoid an import cycle: rules.DealView
// and rules.AssetView are the interfaces Deal and Asset below implement.
package trade

import (
	"fmt"

	"stormlightlabs.org/leaguecore/internal/repository"
)

// Kind identifies one of the four asset variants a Deal can carry.
type Kind string

const (
	KindPlayer     Kind = "player"
	KindPick       Kind = "pick"
	KindSwap       Kind = "swap"
	KindFixedAsset Kind = "fixed_asset"
)

// variantRank orders asset kinds for canonicalize_deal's sort key
// (variant_rank, to_team, identifier).
func variantRank(k Kind) int {
	switch k {
	case KindPlayer:
		return 0
	case KindPick:
		return 1
	case KindSwap:
		return 2
	case KindFixedAsset:
		return 3
	default:
		return 99
	}
}

// Asset is the tagged-variant struct spec §9 calls for: a shared kind/to_team
// plus per-variant fields, with a single asset_key() projection every rule
// consumes uniformly.
type Asset struct {
	kind       Kind
	toTeam     string
	playerID   string
	pickID     string
	swapID     string
	swapPickA  string
	swapPickB  string
	assetID    string
	protection *repository.PickProtection
}

func (a Asset) Kind() string   { return string(a.kind) }
func (a Asset) ToTeam() string { return a.toTeam }
func (a Asset) PlayerID() string { return a.playerID }
func (a Asset) PickID() string   { return a.pickID }
func (a Asset) SwapID() string   { return a.swapID }
func (a Asset) AssetID() string  { return a.assetID }

func (a Asset) SwapPickIDs() (string, string) { return a.swapPickA, a.swapPickB }

func (a Asset) Protection() *repository.PickProtection { return a.protection }

// identifier returns the per-variant identifier asset_key() embeds.
func (a Asset) identifier() string {
	switch a.kind {
	case KindPlayer:
		return a.playerID
	case KindPick:
		return a.pickID
	case KindSwap:
		return a.swapID
	case KindFixedAsset:
		return a.assetID
	default:
		return ""
	}
}

// Key renders "{kind}:{identifier}", the form asset_locks.asset_key and
// DuplicateAssetRule both key off of (spec §4.1, §4.7).
func (a Asset) Key() string {
	return fmt.Sprintf("%s:%s", a.kind, a.identifier())
}
