// Package rules implements the trade rules engine of spec.md §4.7: an
// ordered list of validate(deal, ctx) checks, each raising a typed
// core.TradeError on failure. The package is decoupled from internal/trade's
// concrete Deal/Asset types via the DealView/AssetView interfaces below so
// internal/trade can import rules without a cycle.
package rules

import (
	"context"
	"sort"
	"time"

	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// AssetView is the minimal read-only view of an asset a rule needs.
type AssetView interface {
	Kind() string // "player", "pick", "swap", "fixed_asset"
	Key() string  // asset_key(): "{kind}:{identifier}"
	ToTeam() string
	PlayerID() string
	PickID() string
	SwapID() string
	SwapPickIDs() (string, string)
	AssetID() string
	Protection() *repository.PickProtection
}

// DealView is the minimal read-only view of a deal a rule needs.
type DealView interface {
	Teams() []string
	AssetsForTeam(team string) []AssetView
	DraftYear() int
}

// Context carries everything a rule needs to validate a deal, per spec
// §4.7: an open repository cursor, the normalized current date, the loaded
// trade-rules configuration, and the precomputed salary totals/payrolls.
type Context struct {
	Tx          repository.Querier
	CurrentDate string // ISO-8601 date
	Now         time.Time
	DealID      string // the deal id being validated, excluded from lock-conflict checks
	TradeRules  leaguectx.TradeRulesConfig

	// OutgoingSalary/IncomingSalary are per-team totals computed by
	// BuildTeamTradeTotals before the engine runs.
	OutgoingSalary map[string]int64
	IncomingSalary map[string]int64

	// PrePayroll/PostPayroll are per-team payroll totals computed by
	// BuildTeamPayrolls before and after the deal would apply.
	PrePayroll  map[string]int64
	PostPayroll map[string]int64

	// RosterSize is each team's current roster count (for RosterLimitRule).
	RosterSize map[string]int

	// MaxRosterSize bounds RosterLimitRule; 0 means "use the engine default".
	MaxRosterSize int
}

func (c *Context) now() time.Time {
	if c.Now.IsZero() {
		return time.Now().UTC()
	}
	return c.Now
}

// Rule validates one concern against a deal, raising a *core.TradeError on
// failure. Rules consume the deal via the DealView/AssetView interfaces
// (spec §9 "tagged variant ... rules consume the variant via exhaustive
// pattern matching").
type Rule interface {
	Priority() int
	Name() string
	Validate(ctx context.Context, deal DealView, tctx *Context) error
}

// Engine runs every enabled rule in ascending priority order.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine with the spec's 12 built-in rules, in
// ascending priority order.
func NewEngine(extra ...Rule) *Engine {
	rules := []Rule{
		&DeadlineRule{},
		&TeamLegsRule{},
		&DuplicateAssetRule{},
		&PickProtectionSchemaRule{},
		&SwapUniquenessRule{},
		&AssetLockRule{},
		&OwnershipRule{},
		&RosterLimitRule{},
		&PlayerEligibilityRule{},
		&ReturnToTradingTeamRule{},
		&PickRulesRule{},
		&SalaryMatchingRule{},
	}
	rules = append(rules, extra...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority() < rules[j].Priority() })
	return &Engine{rules: rules}
}

// Validate runs every rule in order, stopping at the first failure.
func (e *Engine) Validate(ctx context.Context, deal DealView, tctx *Context) error {
	for _, r := range e.rules {
		if err := r.Validate(ctx, deal, tctx); err != nil {
			return err
		}
	}
	return nil
}
