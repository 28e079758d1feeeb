// Package contracts implements the contract lifecycle operations of
// spec.md §4.4: bootstrap from roster, option normalization, offseason
// processing, sign/re-sign, and release to free agency.
package contracts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/integrity"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// NormalizeOptionType canonicalizes a contract option into the
// (season_year, type, status, decision_date) tuple spec §4.4 describes,
// supplementing the distilled spec with the dedicated helper
// original_source/'s options_policy.py exposes (see SPEC_FULL.md §9):
// type is one of TEAM/PLAYER/ETO and status one of PENDING/EXERCISED/
// DECLINED, both uppercased; decision_date may be empty only while PENDING.
func NormalizeOptionType(o repository.ContractOption) (repository.ContractOption, error) {
	out := o
	out.Type = strings.ToUpper(strings.TrimSpace(o.Type))
	out.Status = strings.ToUpper(strings.TrimSpace(o.Status))

	switch out.Type {
	case "TEAM", "PLAYER", "ETO":
	default:
		return out, fmt.Errorf("normalize_option_type: invalid option type %q", o.Type)
	}

	switch out.Status {
	case "PENDING":
		// decision_date may be empty.
	case "EXERCISED", "DECLINED":
		if out.DecisionDate == "" {
			return out, fmt.Errorf("normalize_option_type: option %d/%s requires a decision_date", out.SeasonYear, out.Type)
		}
	default:
		return out, fmt.Errorf("normalize_option_type: invalid option status %q", o.Status)
	}

	return out, nil
}

// DecisionPolicy decides EXERCISE or DECLINE for a pending option. The
// default policy (DefaultDecisionPolicy) always exercises, per spec §4.4.
type DecisionPolicy func(option repository.ContractOption, playerID string, contract repository.Contract) string

// DefaultDecisionPolicy always returns EXERCISE, per spec §4.4 "default
// policy returns EXERCISE".
func DefaultDecisionPolicy(repository.ContractOption, string, repository.Contract) string {
	return "EXERCISE"
}

// EnsureContractsBootstrappedFromRoster wraps the repository primitive of
// the same name so callers in this package and cmd/ go through one entry
// point; service callers should prefer this over calling the repository
// function directly since it also runs integrity validation.
func EnsureContractsBootstrappedFromRoster(ctx context.Context, lc *leaguectx.Context, seasonYear int) error {
	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		if err := repository.EnsureContractsBootstrappedFromRoster(ctx, tx, seasonYear, lc.Now); err != nil {
			return err
		}
		if err := repository.RebuildContractIndices(ctx, tx); err != nil {
			return err
		}
		return integrity.ValidateIntegrity(ctx, tx, true)
	})
}

// longestConsecutiveRun returns the length of the longest consecutive run of
// integer-keyed seasons in salaryByYear starting at startYear, per spec
// §4.4's years-recomputation rule.
func longestConsecutiveRun(salaryByYear map[string]int64, startYear int) int {
	years := 0
	for {
		if _, ok := salaryByYear[strconv.Itoa(startYear+years)]; !ok {
			break
		}
		years++
	}
	return years
}

// ProcessOffseason implements spec §4.4's process_offseason(from_year,
// to_year, decision_policy): normalizes options, resolves PENDING options
// whose season_year == to_year via policy (default: always exercise),
// removes declined years from salary_by_season, recomputes years, expires
// contracts that have run out, and releases expired players to free agency.
// Every call runs inside one write transaction and ends with integrity
// validation (spec §4.4 "All mutating contract operations ... end with an
// integrity validation").
func ProcessOffseason(ctx context.Context, lc *leaguectx.Context, fromYear, toYear int, policy DecisionPolicy) error {
	if policy == nil {
		policy = DefaultDecisionPolicy
	}

	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT player_id FROM contracts WHERE is_active = 1")
		if err != nil {
			return fmt.Errorf("process_offseason: failed to list active contracts: %w", err)
		}
		var playerIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("process_offseason: scan: %w", err)
			}
			playerIDs = append(playerIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, playerID := range playerIDs {
			contract, err := repository.GetActiveContractForPlayer(ctx, tx, playerID)
			if err != nil {
				return fmt.Errorf("process_offseason: %w", err)
			}

			normalized := make([]repository.ContractOption, 0, len(contract.Options))
			for _, opt := range contract.Options {
				n, err := NormalizeOptionType(opt)
				if err != nil {
					return fmt.Errorf("process_offseason: contract %s: %w", contract.ContractID, err)
				}
				normalized = append(normalized, n)
			}
			contract.Options = normalized

			for i, opt := range contract.Options {
				if opt.Status != "PENDING" || opt.SeasonYear != toYear {
					continue
				}
				decision := policy(opt, playerID, contract)
				contract.Options[i].DecisionDate = core.FormatDate(lc.Now)
				if decision == "DECLINE" {
					contract.Options[i].Status = "DECLINED"
					delete(contract.SalaryBySeason, strconv.Itoa(toYear))
				} else {
					contract.Options[i].Status = "EXERCISED"
				}
			}

			contract.Years = longestConsecutiveRun(contract.SalaryBySeason, contract.StartSeasonYear)

			if toYear >= contract.StartSeasonYear+contract.Years {
				contract.Status = "EXPIRED"
				contract.IsActive = false
				if err := repository.UpsertContractRecords(ctx, tx, []repository.Contract{contract}, lc.Now); err != nil {
					return fmt.Errorf("process_offseason: %w", err)
				}
				if err := ReleaseToFreeAgents(ctx, tx, playerID, lc.Now); err != nil {
					return fmt.Errorf("process_offseason: %w", err)
				}
				continue
			}

			if contract.EndSeasonID == "" || contract.Years > 0 {
				contract.EndSeasonID = ids.SeasonIDFromYear(contract.StartSeasonYear + contract.Years - 1)
			}
			if err := repository.UpsertContractRecords(ctx, tx, []repository.Contract{contract}, lc.Now); err != nil {
				return fmt.Errorf("process_offseason: %w", err)
			}
		}

		if err := repository.RebuildContractIndices(ctx, tx); err != nil {
			return fmt.Errorf("process_offseason: %w", err)
		}
		return integrity.ValidateIntegrity(ctx, tx, true)
	})
}

