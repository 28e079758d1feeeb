// Package leaguectx defines the explicit context threaded through every
// service operation, replacing the source project's process-wide
// GAME_STATE dictionary (see spec.md §9 "Global mutable state").
package leaguectx

import (
	"time"

	"stormlightlabs.org/leaguecore/internal/repository"
)

// TradeRulesConfig mirrors the league.trade_rules configuration block from
// spec.md §6.
type TradeRulesConfig struct {
	TradeDeadline string // ISO-8601 date

	SalaryCap    int64
	FirstApron   int64
	SecondApron  int64

	CapAutoUpdate       bool
	CapBaseAmount       int64
	CapBaseYear         int
	CapAnnualGrowthRate float64
	CapRoundUnit        int64

	MatchSmallOutMax int64
	MatchMidOutMax   int64
	MatchMidAdd      int64
	MatchBuffer      int64
	FirstApronMult   float64
	SecondApronMult  float64

	NewFASignBanDays    int
	AggregationBanDays  int
	MaxPickYearsAhead   int
	StepienLookahead    int
}

// DefaultTradeRulesConfig returns the defaults named in spec.md §6.
func DefaultTradeRulesConfig() TradeRulesConfig {
	return TradeRulesConfig{
		NewFASignBanDays:   90,
		AggregationBanDays: 60,
		MaxPickYearsAhead:  7,
		StepienLookahead:   7,
		CapRoundUnit:       1,
	}
}

// ApplyCapModel recomputes SalaryCap (and leaves FirstApron/SecondApron
// consistent) when CapAutoUpdate is set, per spec.md §6's cap model:
//
//	cap = round(base * (1+growth)^(y-base_y) / round_unit) * round_unit
//
// with cap <= first_apron <= second_apron enforced after rounding.
func (c *TradeRulesConfig) ApplyCapModel(year int) {
	if !c.CapAutoUpdate || c.CapBaseAmount == 0 {
		return
	}

	unit := c.CapRoundUnit
	if unit <= 0 {
		unit = 1
	}

	growth := 1.0
	for i := 0; i < year-c.CapBaseYear; i++ {
		growth *= 1 + c.CapAnnualGrowthRate
	}
	for i := 0; i < c.CapBaseYear-year; i++ {
		growth /= 1 + c.CapAnnualGrowthRate
	}

	raw := float64(c.CapBaseAmount) * growth
	rounded := int64(raw/float64(unit)+0.5) * unit
	c.SalaryCap = rounded

	if c.FirstApron < c.SalaryCap {
		c.FirstApron = c.SalaryCap
	}
	if c.SecondApron < c.FirstApron {
		c.SecondApron = c.FirstApron
	}
}

// Context carries everything a service operation needs: the open
// repository, the effective "current date" (so tests can pin time instead
// of calling time.Now()), and the loaded trade-rules configuration.
//
// Service operations in contracts/, trade/, and schedule/ that touch the
// database take a *Context explicitly instead of reaching for a global — see
// spec.md §9. Pure helpers (e.g. trade.ParseDeal) and functions that take a
// repository.Querier (e.g. contracts.ReleaseToFreeAgents) do not.
type Context struct {
	Repo       *repository.Repository
	Now        time.Time
	TradeRules TradeRulesConfig
}

// CurrentDate returns Now formatted as an ISO-8601 date (YYYY-MM-DD).
func (c *Context) CurrentDate() string {
	return c.Now.Format("2006-01-02")
}
