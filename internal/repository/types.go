package repository

import "time"

// Player mirrors the players table (spec §3).
type Player struct {
	PlayerID      string
	Name          string
	Position      string
	Age           *int
	HeightInches  *int
	WeightLbs     *int
	OverallRating *int
	Attrs         map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Team is a row in the teams table. FA is the distinguished free-agency team.
type Team struct {
	TeamID     string
	Name       string
	Division   string
	Conference string
}

// RosterEntry mirrors the roster table. PlayerID is its primary key: a
// player occupies at most one active roster slot (spec §3).
type RosterEntry struct {
	PlayerID     string
	TeamID       string
	SalaryAmount int64
	Status       string
	UpdatedAt    time.Time
}

// ContractOption is one canonicalized option on a contract (spec §3).
type ContractOption struct {
	SeasonYear   int    `json:"season_year"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	DecisionDate string `json:"decision_date,omitempty"`
}

// Contract mirrors the contracts table.
type Contract struct {
	ContractID      string
	PlayerID        string
	TeamID          string
	StartSeasonID   string
	EndSeasonID     string
	StartSeasonYear int
	Years           int
	SalaryBySeason  map[string]int64
	Options         []ContractOption
	Status          string
	IsActive        bool
	SignedDate      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PickProtection is the optional TOP_N protection payload on a draft pick.
type PickProtection struct {
	Type          string `json:"type"`
	N             int    `json:"n"`
	Compensation  any    `json:"compensation"`
}

// DraftPick mirrors the draft_picks table.
type DraftPick struct {
	PickID       string
	Year         int
	Round        int
	OriginalTeam string
	OwnerTeam    string
	Protection   *PickProtection
	UpdatedAt    time.Time
}

// SwapRight mirrors the swap_rights table.
type SwapRight struct {
	SwapID      string
	PickIDA     string
	PickIDB     string
	Year        int
	Round       int
	OwnerTeam   string
	Active      bool
	PickPairKey string
	UpdatedAt   time.Time
}

// FixedAsset mirrors the fixed_assets table.
type FixedAsset struct {
	AssetID      string
	Label        string
	Value        int64
	OwnerTeam    string
	SourcePickID *string
	DraftYear    *int
	Attrs        map[string]any
	UpdatedAt    time.Time
}

// TradeAssetsSnapshot is the subset of state get_trade_assets_snapshot
// returns: enough to compute an ownership-based assets_hash and to let the
// trade rules engine inspect current ownership without separate queries.
type TradeAssetsSnapshot struct {
	Players  map[string]RosterEntry
	Picks    map[string]DraftPick
	Swaps    map[string]SwapRight
	Fixed    map[string]FixedAsset
	Contracts map[string]Contract // keyed by player_id, active contract only
}

// TradeAgreement mirrors the trade_agreements table.
type TradeAgreement struct {
	DealID      string
	DealPayload string
	AssetsHash  string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Status      string
}

// AssetLock mirrors the asset_locks table.
type AssetLock struct {
	AssetKey  string
	DealID    string
	ExpiresAt time.Time
}

// TransactionEntry mirrors the transactions_log table.
type TransactionEntry struct {
	TxHash    string
	TxType    string
	TxDate    string
	DealID    *string
	Source    string
	Teams     []string
	Payload   string
	CreatedAt time.Time
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	Limit     int
	SinceDate string
	DealID    string
	TxType    string
}

// ScheduleGame mirrors the master_schedule table.
type ScheduleGame struct {
	GameID      string
	Date        string
	HomeTeamID  string
	AwayTeamID  string
	Status      string
	HomeScore   *int
	AwayScore   *int
	SeasonID    string
	Phase       string
}

// GMProfile mirrors the gm_profiles table. Profile is an opaque JSON blob the
// AI general-manager layer (out of scope per spec §1) owns the shape of; the
// repository only stores and retrieves it.
type GMProfile struct {
	TeamID    string
	Profile   map[string]any
	UpdatedAt time.Time
}

// Negotiation mirrors the negotiations table (spec §6, supplemented from
// original_source/ per SPEC_FULL.md §9 — proposed-but-not-committed deals).
type Negotiation struct {
	NegotiationID  string
	DealPayload    string
	ProposingTeam  string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
