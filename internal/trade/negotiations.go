package trade

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// NegotiationStore is the thin service layer over the negotiations table
// (supplemented from original_source/'s negotiation_store.py per
// SPEC_FULL.md §9): proposed-but-not-committed deals a GM can float, amend,
// or withdraw before either side commits to create_committed_deal.
type NegotiationStore struct {
	lc *leaguectx.Context
}

// NewNegotiationStore builds a NegotiationStore bound to lc's repository
// and clock.
func NewNegotiationStore(lc *leaguectx.Context) *NegotiationStore {
	return &NegotiationStore{lc: lc}
}

// Propose records a new negotiation and returns its generated id.
func (s *NegotiationStore) Propose(ctx context.Context, proposingTeam string, d *Deal) (string, error) {
	payload, err := CanonicalDealJSON(d)
	if err != nil {
		return "", fmt.Errorf("propose: %w", err)
	}

	id := "NEG_" + uuid.NewString()
	n := repository.Negotiation{
		NegotiationID: id, DealPayload: string(payload), ProposingTeam: proposingTeam,
		Status: "PROPOSED", CreatedAt: s.lc.Now, UpdatedAt: s.lc.Now,
	}
	if err := repository.InsertNegotiation(ctx, s.lc.Repo.DB(), n); err != nil {
		return "", fmt.Errorf("propose: %w", err)
	}
	return id, nil
}

// Withdraw marks a negotiation WITHDRAWN.
func (s *NegotiationStore) Withdraw(ctx context.Context, negotiationID string) error {
	return repository.SetNegotiationStatus(ctx, s.lc.Repo.DB(), negotiationID, "WITHDRAWN", s.lc.Now)
}

// Accept marks a negotiation ACCEPTED, signalling the proposing team's
// counterpart agreed to move it into a committed deal.
func (s *NegotiationStore) Accept(ctx context.Context, negotiationID string) error {
	return repository.SetNegotiationStatus(ctx, s.lc.Repo.DB(), negotiationID, "ACCEPTED", s.lc.Now)
}

// Reject marks a negotiation REJECTED.
func (s *NegotiationStore) Reject(ctx context.Context, negotiationID string) error {
	return repository.SetNegotiationStatus(ctx, s.lc.Repo.DB(), negotiationID, "REJECTED", s.lc.Now)
}

// ListForTeam returns every negotiation proposingTeam initiated, newest first.
func (s *NegotiationStore) ListForTeam(ctx context.Context, proposingTeam string) ([]repository.Negotiation, error) {
	return repository.ListNegotiationsForTeam(ctx, s.lc.Repo.DB(), proposingTeam)
}

// Get returns a negotiation by id, decoded back into a *Deal alongside its
// metadata.
func (s *NegotiationStore) Get(ctx context.Context, negotiationID string) (repository.Negotiation, *Deal, error) {
	n, err := repository.GetNegotiation(ctx, s.lc.Repo.DB(), negotiationID)
	if err != nil {
		return n, nil, err
	}
	d, err := DecodeDealPayload(n.DealPayload)
	if err != nil {
		return n, nil, fmt.Errorf("get: %w", err)
	}
	return n, d, nil
}
