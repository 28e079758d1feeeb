// Package txlog wraps internal/repository's transaction-log primitives with
// the canonicalization and hashing spec §4.10 requires: tx_hash is a
// SHA-1 digest of the canonical JSON payload, so two calls that build the
// same logical entry collapse into a single stored row instead of growing
// the log unbounded on retry.
package txlog

import (
	"context"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// Entry is the caller-facing shape of one log entry, before hashing.
type Entry struct {
	TxType  string
	TxDate  string
	DealID  *string
	Source  string
	Teams   []string
	Payload map[string]any
}

// Append computes tx_hash over each entry's canonical JSON payload and
// inserts it, relying on internal/repository's ON CONFLICT(tx_hash) DO
// NOTHING to silently dedupe identical payloads (spec §4.10).
func Append(ctx context.Context, q repository.Querier, entries []Entry, now time.Time) error {
	rows := make([]repository.TransactionEntry, len(entries))
	for i, e := range entries {
		raw, err := core.CanonicalJSON(e.Payload)
		if err != nil {
			return fmt.Errorf("txlog: failed to canonicalize payload: %w", err)
		}
		rows[i] = repository.TransactionEntry{
			TxHash: core.SHA1Hex(raw), TxType: e.TxType, TxDate: e.TxDate,
			DealID: e.DealID, Source: e.Source, Teams: e.Teams, Payload: string(raw),
		}
	}
	if err := repository.InsertTransactions(ctx, q, rows, now); err != nil {
		return fmt.Errorf("txlog: %w", err)
	}
	return nil
}

// List returns log entries per spec §4.10's list_transactions, newest first.
func List(ctx context.Context, q repository.Querier, filter repository.TransactionFilter) ([]repository.TransactionEntry, error) {
	entries, err := repository.ListTransactions(ctx, q, filter)
	if err != nil {
		return nil, fmt.Errorf("txlog: %w", err)
	}
	return entries, nil
}
