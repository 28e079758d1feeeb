package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/ids"
)

// UpsertContractRecords inserts or updates contracts by contract_id.
func UpsertContractRecords(ctx context.Context, q Querier, contracts []Contract, now time.Time) error {
	for _, c := range contracts {
		salary, err := json.Marshal(c.SalaryBySeason)
		if err != nil {
			return fmt.Errorf("upsert_contract_records: failed to encode salary for %s: %w", c.ContractID, err)
		}
		options, err := json.Marshal(c.Options)
		if err != nil {
			return fmt.Errorf("upsert_contract_records: failed to encode options for %s: %w", c.ContractID, err)
		}

		isActive := 0
		if c.IsActive {
			isActive = 1
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO contracts (
				contract_id, player_id, team_id, start_season_id, end_season_id,
				start_season_year, years, salary_by_season, options, status, is_active,
				signed_date, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(contract_id) DO UPDATE SET
				team_id = excluded.team_id,
				end_season_id = excluded.end_season_id,
				start_season_year = excluded.start_season_year,
				years = excluded.years,
				salary_by_season = excluded.salary_by_season,
				options = excluded.options,
				status = excluded.status,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at
		`, c.ContractID, c.PlayerID, c.TeamID, c.StartSeasonID, c.EndSeasonID,
			c.StartSeasonYear, c.Years, string(salary), string(options), c.Status, isActive,
			c.SignedDate, core.FormatTimestamp(now), core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("upsert_contract_records: failed to upsert %s: %w", c.ContractID, err)
		}
	}
	return nil
}

func scanContract(row *sql.Row) (Contract, error) {
	var c Contract
	var endSeasonID sql.NullString
	var salary, options string
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(
		&c.ContractID, &c.PlayerID, &c.TeamID, &c.StartSeasonID, &endSeasonID,
		&c.StartSeasonYear, &c.Years, &salary, &options, &c.Status, &isActive,
		&c.SignedDate, &createdAt, &updatedAt,
	)
	if err != nil {
		return c, err
	}

	if endSeasonID.Valid {
		c.EndSeasonID = endSeasonID.String
	}
	c.IsActive = isActive != 0
	_ = json.Unmarshal([]byte(salary), &c.SalaryBySeason)
	_ = json.Unmarshal([]byte(options), &c.Options)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return c, nil
}

const contractColumns = `
	contract_id, player_id, team_id, start_season_id, end_season_id,
	start_season_year, years, salary_by_season, options, status, is_active,
	signed_date, created_at, updated_at
`

// GetContract returns a single contract by id.
func GetContract(ctx context.Context, q Querier, contractID string) (Contract, error) {
	row := q.QueryRowContext(ctx, "SELECT "+contractColumns+" FROM contracts WHERE contract_id = ?", contractID)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return c, core.NewNotFoundError("contract", contractID)
	}
	if err != nil {
		return c, fmt.Errorf("get_contract: %w", err)
	}
	return c, nil
}

// GetActiveContractForPlayer returns the is_active=1 contract for playerID,
// or core.NotFoundError when the player has none (e.g. a free agent).
func GetActiveContractForPlayer(ctx context.Context, q Querier, playerID string) (Contract, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+contractColumns+" FROM contracts WHERE player_id = ? AND is_active = 1", playerID)
	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return c, core.NewNotFoundError("active contract", playerID)
	}
	if err != nil {
		return c, fmt.Errorf("get_active_contract_for_player: %w", err)
	}
	return c, nil
}

// ListContractsForPlayer returns every contract (active or not) for a player,
// newest first.
func ListContractsForPlayer(ctx context.Context, q Querier, playerID string) ([]Contract, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+contractColumns+" FROM contracts WHERE player_id = ? ORDER BY updated_at DESC, contract_id DESC", playerID)
	if err != nil {
		return nil, fmt.Errorf("list_contracts_for_player: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		var c Contract
		var endSeasonID sql.NullString
		var salary, options string
		var isActive int
		var createdAt, updatedAt string
		if err := rows.Scan(
			&c.ContractID, &c.PlayerID, &c.TeamID, &c.StartSeasonID, &endSeasonID,
			&c.StartSeasonYear, &c.Years, &salary, &options, &c.Status, &isActive,
			&c.SignedDate, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("list_contracts_for_player: scan: %w", err)
		}
		if endSeasonID.Valid {
			c.EndSeasonID = endSeasonID.String
		}
		c.IsActive = isActive != 0
		_ = json.Unmarshal([]byte(salary), &c.SalaryBySeason)
		_ = json.Unmarshal([]byte(options), &c.Options)
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeactivateActiveContractsForPlayer sets is_active=0 on every currently
// active contract for a player (there should be at most one — spec §3/§4.4
// enforces this by deactivate-then-insert; the schema has no unique index
// on active contracts).
func DeactivateActiveContractsForPlayer(ctx context.Context, q Querier, playerID string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE contracts SET is_active = 0, updated_at = ? WHERE player_id = ? AND is_active = 1
	`, core.FormatTimestamp(now), playerID)
	if err != nil {
		return fmt.Errorf("deactivate_active_contracts_for_player: %w", err)
	}
	return nil
}

// EnsureContractsBootstrappedFromRoster implements spec §4.4's bootstrap:
// for each active (non-FA) roster row lacking an active contract, insert a
// one-year BOOT_{season_id}_{player_id} contract at the roster's current
// salary. Idempotent: a player that already has an active contract (whether
// bootstrap-created or not) is skipped entirely.
func EnsureContractsBootstrappedFromRoster(ctx context.Context, q Querier, seasonYear int, now time.Time) error {
	rows, err := q.QueryContext(ctx, `
		SELECT player_id, team_id, salary_amount FROM roster WHERE team_id != 'FA'
	`)
	if err != nil {
		return fmt.Errorf("ensure_contracts_bootstrapped_from_roster: %w", err)
	}

	type pending struct {
		playerID string
		teamID   string
		salary   int64
	}
	var candidates []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.playerID, &p.teamID, &p.salary); err != nil {
			rows.Close()
			return fmt.Errorf("ensure_contracts_bootstrapped_from_roster: scan: %w", err)
		}
		candidates = append(candidates, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	seasonID := ids.SeasonIDFromYear(seasonYear)

	for _, p := range candidates {
		_, err := GetActiveContractForPlayer(ctx, q, p.playerID)
		if err == nil {
			continue // already has an active contract
		}
		if !core.IsNotFound(err) {
			return fmt.Errorf("ensure_contracts_bootstrapped_from_roster: %w", err)
		}

		contractID := fmt.Sprintf("BOOT_%s_%s", seasonID, p.playerID)
		contract := Contract{
			ContractID:      contractID,
			PlayerID:        p.playerID,
			TeamID:          p.teamID,
			StartSeasonID:   seasonID,
			EndSeasonID:     seasonID,
			StartSeasonYear: seasonYear,
			Years:           1,
			SalaryBySeason:  map[string]int64{fmt.Sprintf("%d", seasonYear): p.salary},
			Options:         []ContractOption{},
			Status:          "ACTIVE",
			IsActive:        true,
			SignedDate:      "1900-01-01",
		}
		if err := UpsertContractRecords(ctx, q, []Contract{contract}, now); err != nil {
			return fmt.Errorf("ensure_contracts_bootstrapped_from_roster: %w", err)
		}
	}

	return nil
}

// RebuildContractIndices recomputes the three derived projections named in
// spec §3/§4.2:
//
//   - player_contracts: every (player_id, contract_id) pair.
//   - active_contracts: one row per player, selecting the newest updated_at
//     among that player's is_active=1 rows, tie-broken by lexicographically
//     greatest contract_id (spec §4.2 determinism invariant).
//   - free_agents: derived straight from roster.team_id = 'FA', never written
//     directly by any other caller.
func RebuildContractIndices(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM player_contracts"); err != nil {
		return fmt.Errorf("rebuild_contract_indices: clear player_contracts: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO player_contracts (player_id, contract_id)
		SELECT player_id, contract_id FROM contracts
	`); err != nil {
		return fmt.Errorf("rebuild_contract_indices: populate player_contracts: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM active_contracts"); err != nil {
		return fmt.Errorf("rebuild_contract_indices: clear active_contracts: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO active_contracts (player_id, contract_id)
		SELECT player_id, contract_id FROM (
			SELECT player_id, contract_id,
				ROW_NUMBER() OVER (
					PARTITION BY player_id
					ORDER BY updated_at DESC, contract_id DESC
				) AS rn
			FROM contracts
			WHERE is_active = 1
		) ranked
		WHERE rn = 1
	`); err != nil {
		return fmt.Errorf("rebuild_contract_indices: populate active_contracts: %w", err)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM free_agents"); err != nil {
		return fmt.Errorf("rebuild_contract_indices: clear free_agents: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO free_agents (player_id)
		SELECT player_id FROM roster WHERE team_id = 'FA'
	`); err != nil {
		return fmt.Errorf("rebuild_contract_indices: populate free_agents: %w", err)
	}

	return nil
}
