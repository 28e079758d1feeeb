package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
)

// InsertNegotiation records a proposed-but-not-committed deal (supplemented
// from original_source/'s negotiation_store.py, per SPEC_FULL.md §9 — this
// table is distinct from trade_agreements and the trade engine never reads
// it directly).
func InsertNegotiation(ctx context.Context, q Querier, n Negotiation) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO negotiations (negotiation_id, deal_payload, proposing_team, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.NegotiationID, n.DealPayload, n.ProposingTeam, n.Status, core.FormatTimestamp(n.CreatedAt), core.FormatTimestamp(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert_negotiation: %w", err)
	}
	return nil
}

// SetNegotiationStatus transitions a negotiation (PROPOSED -> WITHDRAWN /
// ACCEPTED / REJECTED).
func SetNegotiationStatus(ctx context.Context, q Querier, negotiationID, status string, now time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE negotiations SET status = ?, updated_at = ? WHERE negotiation_id = ?
	`, status, core.FormatTimestamp(now), negotiationID)
	if err != nil {
		return fmt.Errorf("set_negotiation_status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("negotiation", negotiationID)
	}
	return nil
}

// ListNegotiationsForTeam returns every negotiation proposingTeam initiated,
// newest first.
func ListNegotiationsForTeam(ctx context.Context, q Querier, teamID string) ([]Negotiation, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT negotiation_id, deal_payload, proposing_team, status, created_at, updated_at
		FROM negotiations WHERE proposing_team = ?
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list_negotiations_for_team: %w", err)
	}
	defer rows.Close()

	var out []Negotiation
	for rows.Next() {
		var n Negotiation
		var createdAt, updatedAt string
		if err := rows.Scan(&n.NegotiationID, &n.DealPayload, &n.ProposingTeam, &n.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("list_negotiations_for_team: scan: %w", err)
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		n.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetNegotiation returns a single negotiation by id.
func GetNegotiation(ctx context.Context, q Querier, negotiationID string) (Negotiation, error) {
	var n Negotiation
	var createdAt, updatedAt string
	err := q.QueryRowContext(ctx, `
		SELECT negotiation_id, deal_payload, proposing_team, status, created_at, updated_at
		FROM negotiations WHERE negotiation_id = ?
	`, negotiationID).Scan(&n.NegotiationID, &n.DealPayload, &n.ProposingTeam, &n.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return n, core.NewNotFoundError("negotiation", negotiationID)
	}
	if err != nil {
		return n, fmt.Errorf("get_negotiation: %w", err)
	}
	n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	n.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return n, nil
}
