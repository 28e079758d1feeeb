package repository

import (
	"context"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
)

// InsertTransactions appends entries to the log, silently deduplicating by
// tx_hash (spec §4.10) — the caller (internal/txlog) is expected to have
// already computed TxHash as a hash of the canonical payload.
func InsertTransactions(ctx context.Context, q Querier, entries []TransactionEntry, now time.Time) error {
	for _, e := range entries {
		teamsJSON, err := marshalTeams(e.Teams)
		if err != nil {
			return fmt.Errorf("insert_transactions: failed to encode teams: %w", err)
		}

		_, err = q.ExecContext(ctx, `
			INSERT INTO transactions_log (tx_hash, tx_type, tx_date, deal_id, source, teams, payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(tx_hash) DO NOTHING
		`, e.TxHash, e.TxType, e.TxDate, e.DealID, e.Source, teamsJSON, e.Payload, core.FormatTimestamp(now))
		if err != nil {
			return fmt.Errorf("insert_transactions: failed to insert %s: %w", e.TxHash, err)
		}
	}
	return nil
}

// ListTransactions returns log entries in descending (tx_date, created_at)
// order (spec §4.10), narrowed by whichever filter fields are non-zero.
func ListTransactions(ctx context.Context, q Querier, filter TransactionFilter) ([]TransactionEntry, error) {
	query := `
		SELECT tx_hash, tx_type, tx_date, deal_id, source, teams, payload, created_at
		FROM transactions_log WHERE 1=1
	`
	var args []any

	if filter.SinceDate != "" {
		query += " AND tx_date >= ?"
		args = append(args, filter.SinceDate)
	}
	if filter.DealID != "" {
		query += " AND deal_id = ?"
		args = append(args, filter.DealID)
	}
	if filter.TxType != "" {
		query += " AND tx_type = ?"
		args = append(args, filter.TxType)
	}

	query += " ORDER BY tx_date DESC, created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list_transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionEntry
	for rows.Next() {
		var e TransactionEntry
		var dealID *string
		var teamsJSON string
		var createdAt string
		if err := rows.Scan(&e.TxHash, &e.TxType, &e.TxDate, &dealID, &e.Source, &teamsJSON, &e.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("list_transactions: scan: %w", err)
		}
		e.DealID = dealID
		e.Teams = unmarshalTeams(teamsJSON)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
