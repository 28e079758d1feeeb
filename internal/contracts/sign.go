package contracts

import (
	"context"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/integrity"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// ReleaseToFreeAgents implements spec §4.4 "Release to free agency": set
// roster team_id='FA', deactivate any active contract. q may be either the
// Repository's DB directly or an in-flight *repository.Tx, so callers
// already inside a transaction (process_offseason) can reuse this without
// nesting another one.
func ReleaseToFreeAgents(ctx context.Context, q repository.Querier, playerID string, now time.Time) error {
	entry, err := repository.GetRosterEntry(ctx, q, playerID)
	if err != nil {
		return fmt.Errorf("release_to_free_agents: %w", err)
	}
	entry.TeamID = ids.FreeAgencyTeamID
	entry.Status = "free_agent"
	if err := repository.UpsertRoster(ctx, q, entry, now); err != nil {
		return fmt.Errorf("release_to_free_agents: %w", err)
	}
	return repository.DeactivateActiveContractsForPlayer(ctx, q, playerID, now)
}

// SignFreeAgent implements spec §4.4 "sign_free_agent": validates the player
// is currently FA, deactivates any other active contract (defensive — a free
// agent should have none), inserts a new contract, and updates the roster
// team/salary atomically.
func SignFreeAgent(ctx context.Context, lc *leaguectx.Context, playerID, teamID string, years int, salaryBySeason map[string]int64, signedDate, contractID string) error {
	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		entry, err := repository.GetRosterEntry(ctx, tx, playerID)
		if err != nil {
			return fmt.Errorf("sign_free_agent: %w", err)
		}
		if entry.TeamID != ids.FreeAgencyTeamID {
			return fmt.Errorf("sign_free_agent: player %s is not a free agent (currently on %s)", playerID, entry.TeamID)
		}

		if err := repository.DeactivateActiveContractsForPlayer(ctx, tx, playerID, lc.Now); err != nil {
			return fmt.Errorf("sign_free_agent: %w", err)
		}

		startYear := seasonStartYearFromSalary(salaryBySeason)
		contract := repository.Contract{
			ContractID:      contractID,
			PlayerID:        playerID,
			TeamID:          teamID,
			StartSeasonID:   ids.SeasonIDFromYear(startYear),
			EndSeasonID:     ids.SeasonIDFromYear(startYear + years - 1),
			StartSeasonYear: startYear,
			Years:           years,
			SalaryBySeason:  salaryBySeason,
			Options:         []repository.ContractOption{},
			Status:          "ACTIVE",
			IsActive:        true,
			SignedDate:      signedDate,
		}
		if err := repository.UpsertContractRecords(ctx, tx, []repository.Contract{contract}, lc.Now); err != nil {
			return fmt.Errorf("sign_free_agent: %w", err)
		}

		entry.TeamID = teamID
		entry.Status = "active"
		entry.SalaryAmount = salaryBySeason[fmt.Sprintf("%d", startYear)]
		if err := repository.UpsertRoster(ctx, tx, entry, lc.Now); err != nil {
			return fmt.Errorf("sign_free_agent: %w", err)
		}

		if err := repository.RebuildContractIndices(ctx, tx); err != nil {
			return fmt.Errorf("sign_free_agent: %w", err)
		}
		return integrity.ValidateIntegrity(ctx, tx, true)
	})
}

// ReSignOrExtend implements spec §4.4 "re_sign_or_extend": same mechanics as
// SignFreeAgent but the player need not currently be FA — any existing
// active contract for the player is deactivated regardless of current team.
func ReSignOrExtend(ctx context.Context, lc *leaguectx.Context, playerID, teamID string, years int, salaryBySeason map[string]int64, signedDate, contractID string) error {
	return lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		entry, err := repository.GetRosterEntry(ctx, tx, playerID)
		if err != nil {
			return fmt.Errorf("re_sign_or_extend: %w", err)
		}

		if err := repository.DeactivateActiveContractsForPlayer(ctx, tx, playerID, lc.Now); err != nil {
			return fmt.Errorf("re_sign_or_extend: %w", err)
		}

		startYear := seasonStartYearFromSalary(salaryBySeason)
		contract := repository.Contract{
			ContractID:      contractID,
			PlayerID:        playerID,
			TeamID:          teamID,
			StartSeasonID:   ids.SeasonIDFromYear(startYear),
			EndSeasonID:     ids.SeasonIDFromYear(startYear + years - 1),
			StartSeasonYear: startYear,
			Years:           years,
			SalaryBySeason:  salaryBySeason,
			Options:         []repository.ContractOption{},
			Status:          "ACTIVE",
			IsActive:        true,
			SignedDate:      signedDate,
		}
		if err := repository.UpsertContractRecords(ctx, tx, []repository.Contract{contract}, lc.Now); err != nil {
			return fmt.Errorf("re_sign_or_extend: %w", err)
		}

		entry.TeamID = teamID
		entry.Status = "active"
		entry.SalaryAmount = salaryBySeason[fmt.Sprintf("%d", startYear)]
		if err := repository.UpsertRoster(ctx, tx, entry, lc.Now); err != nil {
			return fmt.Errorf("re_sign_or_extend: %w", err)
		}

		if err := repository.RebuildContractIndices(ctx, tx); err != nil {
			return fmt.Errorf("re_sign_or_extend: %w", err)
		}
		return integrity.ValidateIntegrity(ctx, tx, true)
	})
}

// seasonStartYearFromSalary picks the earliest season year present in a
// salary_by_season map, used as a contract's start_season_year when the
// caller supplies salary data but not an explicit start year.
func seasonStartYearFromSalary(salaryBySeason map[string]int64) int {
	min := 0
	first := true
	for yearStr := range salaryBySeason {
		year := 0
		fmt.Sscanf(yearStr, "%d", &year)
		if first || year < min {
			min = year
			first = false
		}
	}
	return min
}
