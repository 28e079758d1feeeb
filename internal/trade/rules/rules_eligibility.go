package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// PlayerEligibilityRule bans recently signed/re-signed players from trades
// until max(signed_date + new_fa_sign_ban_days, Dec 15 of season_year), and
// separately bans players recently acquired in a trade from being part of
// an aggregated (size >= 2) outgoing group before
// acquired_date + aggregation_ban_days.
//
// The sign/re-sign ban is keyed off the player's active contract's
// SignedDate (repository.GetActiveContractForPlayer), not roster
// UpdatedAt: TradePlayer stamps updated_at on every trade too, and a
// bootstrapped contract's SignedDate of "1900-01-01" is what exempts an
// initial/imported roster from this ban (internal/repository/contracts.go).
// The aggregation ban stays keyed off roster UpdatedAt, since it concerns
// "recently acquired in a trade", which is exactly what that timestamp
// tracks.
type PlayerEligibilityRule struct{}

func (PlayerEligibilityRule) Priority() int { return 70 }
func (PlayerEligibilityRule) Name() string  { return "PlayerEligibilityRule" }

func (PlayerEligibilityRule) Validate(ctx context.Context, deal DealView, tctx *Context) error {
	now := tctx.now()
	decEarlier := time.Date(deal.DraftYear(), time.December, 15, 0, 0, 0, 0, time.UTC)

	for _, t := range deal.Teams() {
		outgoingPlayers := 0
		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() == "player" {
				outgoingPlayers++
			}
		}

		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() != "player" {
				continue
			}

			contract, err := repository.GetActiveContractForPlayer(ctx, tctx.Tx, a.PlayerID())
			if err != nil && !core.IsNotFound(err) {
				return fmt.Errorf("PlayerEligibilityRule: %w", err)
			}
			if err == nil {
				signedAt, err := time.Parse("2006-01-02", contract.SignedDate)
				if err != nil {
					return fmt.Errorf("PlayerEligibilityRule: invalid signed_date for contract %s: %w", contract.ContractID, err)
				}

				signBanUntil := signedAt.AddDate(0, 0, tctx.TradeRules.NewFASignBanDays)
				if signBanUntil.Before(decEarlier) {
					signBanUntil = decEarlier
				}
				if now.Before(signBanUntil) {
					return core.NewTradeError(core.ErrInvalidInput, "player was recently signed and is not yet trade-eligible", map[string]any{
						"player_id": a.PlayerID(), "eligible_after": signBanUntil.Format("2006-01-02"),
					})
				}
			}

			if outgoingPlayers >= 2 {
				entry, err := repository.GetRosterEntry(ctx, tctx.Tx, a.PlayerID())
				if err != nil {
					return fmt.Errorf("PlayerEligibilityRule: %w", err)
				}
				aggBanUntil := entry.UpdatedAt.AddDate(0, 0, tctx.TradeRules.AggregationBanDays)
				if now.Before(aggBanUntil) {
					return core.NewTradeError(core.ErrInvalidInput, "player was recently acquired and cannot be part of an aggregated outgoing group yet", map[string]any{
						"player_id": a.PlayerID(), "eligible_after": aggBanUntil.Format("2006-01-02"),
					})
				}
			}
		}
	}
	return nil
}

// ReturnToTradingTeamRule forbids trading a player back to a team they were
// traded away from earlier in the same season, read from the transaction
// log's "players" move map (internal/txlog's payload shape).
type ReturnToTradingTeamRule struct{}

func (ReturnToTradingTeamRule) Priority() int { return 72 }
func (ReturnToTradingTeamRule) Name() string  { return "ReturnToTradingTeamRule" }

func (ReturnToTradingTeamRule) Validate(ctx context.Context, deal DealView, tctx *Context) error {
	seasonStart := fmt.Sprintf("%04d-10-19", deal.DraftYear())

	entries, err := repository.ListTransactions(ctx, tctx.Tx, repository.TransactionFilter{
		TxType:    "trade",
		SinceDate: seasonStart,
		Limit:     500,
	})
	if err != nil {
		return fmt.Errorf("ReturnToTradingTeamRule: %w", err)
	}

	for _, t := range deal.Teams() {
		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() != "player" {
				continue
			}
			for _, e := range entries {
				from, ok := playerPreviousTeam(e.Payload, a.PlayerID())
				if !ok {
					continue
				}
				if from == a.ToTeam() {
					return core.NewTradeError(core.ErrInvalidInput, "player cannot be traded back to a team they left this season", map[string]any{
						"player_id": a.PlayerID(), "team": a.ToTeam(),
					})
				}
			}
		}
	}
	return nil
}

// playerPreviousTeam inspects a transaction log payload's "players" map
// (playerID -> {"from": team, "to": team}) for the given player.
func playerPreviousTeam(payload, playerID string) (string, bool) {
	var decoded struct {
		Players map[string]struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"players"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return "", false
	}
	move, ok := decoded.Players[playerID]
	if !ok {
		return "", false
	}
	return move.From, true
}

// PickRulesRule implements the Stepien rule: a team must retain at least one
// first-round pick in every rolling two-year window within the configured
// look-ahead, and may not trade a pick further out than max_pick_years_ahead.
type PickRulesRule struct{}

func (PickRulesRule) Priority() int { return 80 }
func (PickRulesRule) Name() string  { return "PickRulesRule" }

func (PickRulesRule) Validate(ctx context.Context, deal DealView, tctx *Context) error {
	draftYear := deal.DraftYear()

	for _, t := range deal.Teams() {
		var sentFirsts []int
		for _, a := range deal.AssetsForTeam(t) {
			if a.Kind() != "pick" {
				continue
			}
			pick, err := repository.GetDraftPick(ctx, tctx.Tx, a.PickID())
			if err != nil {
				return fmt.Errorf("PickRulesRule: %w", err)
			}
			if pick.Round != 1 {
				continue
			}
			if pick.Year > draftYear+tctx.TradeRules.MaxPickYearsAhead {
				return core.NewTradeError(core.ErrInvalidInput, "pick is further out than max_pick_years_ahead allows", map[string]any{
					"pick_id": a.PickID(), "year": pick.Year,
				})
			}
			sentFirsts = append(sentFirsts, pick.Year)
		}

		// The Stepien window only needs checking when this deal actually
		// removes a first-round pick from t; a team untouched by pick
		// movement can't newly violate the rule.
		if len(sentFirsts) == 0 {
			continue
		}

		owned, err := repository.ListPicksOwnedBy(ctx, tctx.Tx, t)
		if err != nil {
			return fmt.Errorf("PickRulesRule: %w", err)
		}
		ownedFirsts := map[int]bool{}
		for _, p := range owned {
			if p.Round == 1 {
				ownedFirsts[p.Year] = true
			}
		}
		for _, y := range sentFirsts {
			delete(ownedFirsts, y)
		}

		for d := 0; d <= tctx.TradeRules.StepienLookahead; d++ {
			if !ownedFirsts[draftYear+d] && !ownedFirsts[draftYear+d+1] {
				return core.NewTradeError(core.ErrInvalidInput, "team would violate the Stepien rule", map[string]any{
					"team": t, "window": []int{draftYear + d, draftYear + d + 1},
				})
			}
		}
	}
	return nil
}

// SalaryMatchingRule bounds incoming salary as a function of outgoing
// salary and the sending team's post-trade cap-apron tier.
type SalaryMatchingRule struct{}

func (SalaryMatchingRule) Priority() int { return 85 }
func (SalaryMatchingRule) Name() string  { return "SalaryMatchingRule" }

func (r SalaryMatchingRule) Validate(_ context.Context, deal DealView, tctx *Context) error {
	for _, t := range deal.Teams() {
		out := tctx.OutgoingSalary[t]
		in := tctx.IncomingSalary[t]
		if out == 0 {
			continue
		}

		post := tctx.PostPayroll[t]
		tr := tctx.TradeRules
		if tr.SalaryCap <= 0 || post < tr.SalaryCap {
			continue // no cap configured, or below the cap: unrestricted
		}

		var allowed float64
		switch {
		case out <= tr.MatchSmallOutMax:
			allowed = float64(out)*2 + float64(tr.MatchBuffer)
		case out <= tr.MatchMidOutMax:
			allowed = float64(out) + float64(tr.MatchMidAdd) + float64(tr.MatchBuffer)
		default:
			mult := 1.0
			switch {
			case tr.SecondApron > 0 && post >= tr.SecondApron:
				mult = tr.SecondApronMult
			case tr.FirstApron > 0 && post >= tr.FirstApron:
				mult = tr.FirstApronMult
			}
			if mult == 0 {
				mult = 1.0
			}
			allowed = float64(out)*mult + float64(tr.MatchBuffer)
		}

		if float64(in) > allowed {
			return core.NewTradeError(core.ErrInvalidInput, "incoming salary exceeds what outgoing salary allows under CBA matching rules", map[string]any{
				"team": t, "outgoing": out, "incoming": in, "allowed": strconv.FormatFloat(allowed, 'f', 0, 64),
			})
		}
	}
	return nil
}
