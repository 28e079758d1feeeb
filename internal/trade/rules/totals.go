package rules

import (
	"context"
	"fmt"

	"stormlightlabs.org/leaguecore/internal/repository"
)

// BuildTeamTradeTotals sums each team's outgoing and incoming player salary
// for SalaryMatchingRule, from the roster's current salary_amount — the same
// figure get_trade_assets_snapshot loads for lock/ownership checks.
func BuildTeamTradeTotals(ctx context.Context, q repository.Querier, deal DealView) (outgoing, incoming map[string]int64, err error) {
	outgoing = map[string]int64{}
	incoming = map[string]int64{}

	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() != "player" {
				continue
			}
			entry, gerr := repository.GetRosterEntry(ctx, q, a.PlayerID())
			if gerr != nil {
				return nil, nil, fmt.Errorf("build_team_trade_totals: %w", gerr)
			}
			outgoing[t] += entry.SalaryAmount
			incoming[a.ToTeam()] += entry.SalaryAmount
		}
	}
	return outgoing, incoming, nil
}

// BuildTeamPayrolls returns each participating team's current total payroll
// (pre) and its payroll after the deal's player moves apply (post), for
// SalaryMatchingRule's cap-tier lookup.
func BuildTeamPayrolls(ctx context.Context, q repository.Querier, deal DealView) (pre, post map[string]int64, err error) {
	pre = map[string]int64{}
	post = map[string]int64{}

	for _, t := range deal.Teams() {
		roster, rerr := repository.GetTeamRoster(ctx, q, t)
		if rerr != nil {
			return nil, nil, fmt.Errorf("build_team_payrolls: %w", rerr)
		}
		var total int64
		for _, e := range roster {
			total += e.SalaryAmount
		}
		pre[t] = total
		post[t] = total
	}

	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() != "player" {
				continue
			}
			entry, gerr := repository.GetRosterEntry(ctx, q, a.PlayerID())
			if gerr != nil {
				return nil, nil, fmt.Errorf("build_team_payrolls: %w", gerr)
			}
			post[t] -= entry.SalaryAmount
			if _, ok := post[a.ToTeam()]; ok {
				post[a.ToTeam()] += entry.SalaryAmount
			}
		}
	}
	return pre, post, nil
}

// BuildRosterSizes returns each participating team's current roster count,
// for RosterLimitRule.
func BuildRosterSizes(ctx context.Context, q repository.Querier, deal DealView) (map[string]int, error) {
	sizes := map[string]int{}
	for _, t := range deal.Teams() {
		roster, err := repository.GetTeamRoster(ctx, q, t)
		if err != nil {
			return nil, fmt.Errorf("build_roster_sizes: %w", err)
		}
		sizes[t] = len(roster)
	}
	return sizes, nil
}
