package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
)

// InsertTradeAgreement creates a new committed-deal row (spec §4.8 step 3).
func InsertTradeAgreement(ctx context.Context, q Querier, a TradeAgreement) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO trade_agreements (deal_id, deal_payload, assets_hash, created_at, expires_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.DealID, a.DealPayload, a.AssetsHash, core.FormatTimestamp(a.CreatedAt), core.FormatTimestamp(a.ExpiresAt), a.Status)
	if err != nil {
		return fmt.Errorf("insert_trade_agreement: %w", err)
	}
	return nil
}

// GetTradeAgreement returns an agreement by deal_id, or core.NotFoundError.
func GetTradeAgreement(ctx context.Context, q Querier, dealID string) (TradeAgreement, error) {
	var a TradeAgreement
	var createdAt, expiresAt string
	err := q.QueryRowContext(ctx, `
		SELECT deal_id, deal_payload, assets_hash, created_at, expires_at, status
		FROM trade_agreements WHERE deal_id = ?
	`, dealID).Scan(&a.DealID, &a.DealPayload, &a.AssetsHash, &createdAt, &expiresAt, &a.Status)
	if err == sql.ErrNoRows {
		return a, core.NewNotFoundError("trade agreement", dealID)
	}
	if err != nil {
		return a, fmt.Errorf("get_trade_agreement: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return a, nil
}

// SetTradeAgreementStatus transitions an agreement's status (ACTIVE ->
// EXECUTED/EXPIRED/INVALIDATED).
func SetTradeAgreementStatus(ctx context.Context, q Querier, dealID, status string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE trade_agreements SET status = ? WHERE deal_id = ?
	`, status, dealID)
	if err != nil {
		return fmt.Errorf("set_trade_agreement_status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.NewNotFoundError("trade agreement", dealID)
	}
	return nil
}

// ListActiveTradeAgreements returns every ACTIVE agreement, used by
// gc_expired_agreements to find candidates past their expiry.
func ListActiveTradeAgreements(ctx context.Context, q Querier) ([]TradeAgreement, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT deal_id, deal_payload, assets_hash, created_at, expires_at, status
		FROM trade_agreements WHERE status = 'ACTIVE'
	`)
	if err != nil {
		return nil, fmt.Errorf("list_active_trade_agreements: %w", err)
	}
	defer rows.Close()

	var out []TradeAgreement
	for rows.Next() {
		var a TradeAgreement
		var createdAt, expiresAt string
		if err := rows.Scan(&a.DealID, &a.DealPayload, &a.AssetsHash, &createdAt, &expiresAt, &a.Status); err != nil {
			return nil, fmt.Errorf("list_active_trade_agreements: scan: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		a.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAssetLock locks a single asset to a deal. Callers must first verify,
// via FindLiveLockForAsset, that no other live deal holds the asset.
func InsertAssetLock(ctx context.Context, q Querier, lock AssetLock) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO asset_locks (asset_key, deal_id, expires_at) VALUES (?, ?, ?)
	`, lock.AssetKey, lock.DealID, core.FormatTimestamp(lock.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert_asset_lock: %w", err)
	}
	return nil
}

// FindLiveLockForAsset returns the lock currently held on assetKey by a deal
// other than excludeDealID whose agreement is still ACTIVE and unexpired, or
// nil if the asset is free. Expired locks are not returned here and are not
// released by this function either; AssetLockRule releases them via
// ListLocksForAsset and ReleaseLock.
func FindLiveLockForAsset(ctx context.Context, q Querier, assetKey, excludeDealID string, now time.Time) (*AssetLock, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT l.asset_key, l.deal_id, l.expires_at
		FROM asset_locks l
		JOIN trade_agreements a ON a.deal_id = l.deal_id
		WHERE l.asset_key = ? AND l.deal_id != ? AND a.status = 'ACTIVE' AND l.expires_at > ?
	`, assetKey, excludeDealID, core.FormatTimestamp(now))
	if err != nil {
		return nil, fmt.Errorf("find_live_lock_for_asset: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	var l AssetLock
	var expiresAt string
	if err := rows.Scan(&l.AssetKey, &l.DealID, &expiresAt); err != nil {
		return nil, fmt.Errorf("find_live_lock_for_asset: scan: %w", err)
	}
	l.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return &l, nil
}

// ListLocksForAsset returns every lock row for assetKey regardless of expiry
// or owning agreement status, used by AssetLockRule to silently release
// expired locks on access (spec §4.7/§7 "self-healing").
func ListLocksForAsset(ctx context.Context, q Querier, assetKey string) ([]AssetLock, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT asset_key, deal_id, expires_at FROM asset_locks WHERE asset_key = ?
	`, assetKey)
	if err != nil {
		return nil, fmt.Errorf("list_locks_for_asset: %w", err)
	}
	defer rows.Close()

	var out []AssetLock
	for rows.Next() {
		var l AssetLock
		var expiresAt string
		if err := rows.Scan(&l.AssetKey, &l.DealID, &expiresAt); err != nil {
			return nil, fmt.Errorf("list_locks_for_asset: scan: %w", err)
		}
		l.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReleaseLock deletes a single lock row by asset key and deal id.
func ReleaseLock(ctx context.Context, q Querier, assetKey, dealID string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM asset_locks WHERE asset_key = ? AND deal_id = ?", assetKey, dealID)
	if err != nil {
		return fmt.Errorf("release_lock: %w", err)
	}
	return nil
}

// GetTradeAgreementStatus is a lightweight status-only lookup used by
// AssetLockRule to check whether a lock's owning deal is still ACTIVE
// without loading the full agreement payload.
func GetTradeAgreementStatus(ctx context.Context, q Querier, dealID string) (string, error) {
	var status string
	err := q.QueryRowContext(ctx, "SELECT status FROM trade_agreements WHERE deal_id = ?", dealID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", core.NewNotFoundError("trade agreement", dealID)
	}
	if err != nil {
		return "", fmt.Errorf("get_trade_agreement_status: %w", err)
	}
	return status, nil
}

// ListLocksForDeal returns every lock held by a given deal.
func ListLocksForDeal(ctx context.Context, q Querier, dealID string) ([]AssetLock, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT asset_key, deal_id, expires_at FROM asset_locks WHERE deal_id = ?
	`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list_locks_for_deal: %w", err)
	}
	defer rows.Close()

	var out []AssetLock
	for rows.Next() {
		var l AssetLock
		var expiresAt string
		if err := rows.Scan(&l.AssetKey, &l.DealID, &expiresAt); err != nil {
			return nil, fmt.Errorf("list_locks_for_deal: scan: %w", err)
		}
		l.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReleaseLocksForDeal deletes every lock held by dealID (spec §4.8
// mark_executed / verify_committed_deal's self-healing release).
func ReleaseLocksForDeal(ctx context.Context, q Querier, dealID string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM asset_locks WHERE deal_id = ?", dealID)
	if err != nil {
		return fmt.Errorf("release_locks_for_deal: %w", err)
	}
	return nil
}
