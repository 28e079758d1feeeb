// Package core holds error and value types shared across every League Core
// package (repository, contracts, trade, schedule) so none of them need to
// import each other just to report a failure.
package core

import (
	"fmt"
	"strings"
)

// NotFoundError represents a resource that could not be found.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*NotFoundError)
	return ok
}

// TradeErrorCode is one of the stable error codes named in spec §7.
type TradeErrorCode string

const (
	ErrInvalidInput        TradeErrorCode = "INVALID_INPUT"
	ErrInvalidPlayerID     TradeErrorCode = "INVALID_PLAYER_ID"
	ErrMissingToTeam       TradeErrorCode = "MISSING_TO_TEAM"
	ErrProtectionInvalid   TradeErrorCode = "PROTECTION_INVALID"
	ErrSwapInvalid         TradeErrorCode = "SWAP_INVALID"
	ErrDealInvalidated     TradeErrorCode = "DEAL_INVALIDATED"
	ErrPlayerNotOwned      TradeErrorCode = "PLAYER_NOT_OWNED"
	ErrPickNotOwned        TradeErrorCode = "PICK_NOT_OWNED"
	ErrSwapNotOwned        TradeErrorCode = "SWAP_NOT_OWNED"
	ErrFixedAssetNotFound  TradeErrorCode = "FIXED_ASSET_NOT_FOUND"
	ErrFixedAssetNotOwned  TradeErrorCode = "FIXED_ASSET_NOT_OWNED"
	ErrProtectionConflict  TradeErrorCode = "PROTECTION_CONFLICT"
	ErrAssetLocked         TradeErrorCode = "ASSET_LOCKED"
	ErrDealExpired         TradeErrorCode = "DEAL_EXPIRED"
	ErrDealAlreadyExecuted TradeErrorCode = "DEAL_ALREADY_EXECUTED"
	ErrApplyFailed         TradeErrorCode = "APPLY_FAILED"
)

// TradeError is the typed error every trade rule and trade-lifecycle
// operation raises on failure (spec §7). Details carries enough identifying
// information (player id, pick id, deal id) for a caller to react without
// parsing Message.
type TradeError struct {
	Code    TradeErrorCode
	Message string
	Details map[string]any
}

func (e *TradeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewTradeError builds a TradeError, copying details so callers can't mutate
// the error's state through a shared map after the fact.
func NewTradeError(code TradeErrorCode, message string, details map[string]any) *TradeError {
	copied := make(map[string]any, len(details))
	for k, v := range details {
		copied[k] = v
	}
	return &TradeError{Code: code, Message: message, Details: copied}
}

// AsTradeError unwraps err into a *TradeError, if it is one.
func AsTradeError(err error) (*TradeError, bool) {
	te, ok := err.(*TradeError)
	return te, ok
}

// IntegrityError reports a batch of invariant violations found by
// internal/integrity. Violations are capped at 10 offending items per
// spec §4.3, with Truncated set when more were found.
type IntegrityError struct {
	Checks     []string
	Violations []string
	Truncated  bool
}

func (e *IntegrityError) Error() string {
	var b strings.Builder
	b.WriteString("integrity validation failed: ")
	b.WriteString(strings.Join(e.Violations, "; "))
	if e.Truncated {
		b.WriteString(" (truncated)")
	}
	return b.String()
}

// NewIntegrityError builds an IntegrityError from a flat violation list,
// capping it at 10 items and recording whether truncation occurred.
func NewIntegrityError(check string, violations []string) *IntegrityError {
	truncated := false
	if len(violations) > 10 {
		violations = violations[:10]
		truncated = true
	}
	return &IntegrityError{Checks: []string{check}, Violations: violations, Truncated: truncated}
}

// MergeIntegrityErrors combines multiple per-check IntegrityErrors (as
// produced by concurrent checks in internal/integrity) into one, re-applying
// the 10-item cap across the merged set.
func MergeIntegrityErrors(errs ...*IntegrityError) *IntegrityError {
	merged := &IntegrityError{}
	for _, e := range errs {
		if e == nil {
			continue
		}
		merged.Checks = append(merged.Checks, e.Checks...)
		merged.Violations = append(merged.Violations, e.Violations...)
		if e.Truncated {
			merged.Truncated = true
		}
	}
	if len(merged.Violations) > 10 {
		merged.Violations = merged.Violations[:10]
		merged.Truncated = true
	}
	return merged
}
