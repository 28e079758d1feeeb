package trade

import (
	"context"

	"stormlightlabs.org/leaguecore/internal/core"
	"stormlightlabs.org/leaguecore/internal/integrity"
	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/trade/rules"
	"stormlightlabs.org/leaguecore/internal/txlog"
)

type playerMove struct {
	playerID string
	from     string
	to       string
}

type pickMove struct {
	pickID     string
	to         string
	protection *repository.PickProtection
}

type swapMove struct {
	swapID string
	to     string
}

type fixedMove struct {
	assetID string
	to      string
}

// ApplyDeal implements apply_deal (spec §4.9): validates every player move
// against current ownership, executes all moves in dependency order
// (players -> picks -> swaps -> fixed assets), runs integrity validation,
// and appends one transaction log entry — all inside a single write
// transaction. dealID is optional (empty for an ad hoc, non-agreement
// trade); tradeDate defaults to lc.Now's date.
func ApplyDeal(ctx context.Context, lc *leaguectx.Context, d *Deal, source, dealID, tradeDate string) error {
	if tradeDate == "" {
		tradeDate = lc.CurrentDate()
	}

	players, picks, swaps, fixed, err := collectMoves(d)
	if err != nil {
		return err
	}

	err = lc.Repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		for _, m := range players {
			entry, err := repository.GetRosterEntry(ctx, tx, m.playerID)
			if err != nil {
				return core.NewTradeError(core.ErrApplyFailed, "player not found on roster", map[string]any{"player_id": m.playerID})
			}
			if entry.TeamID != m.from {
				return core.NewTradeError(core.ErrApplyFailed, "player is no longer on the sending team", map[string]any{
					"player_id": m.playerID, "expected_team": m.from, "actual_team": entry.TeamID,
				})
			}
		}

		for _, m := range players {
			if err := repository.TradePlayer(ctx, tx, m.playerID, m.to, lc.Now); err != nil {
				return core.NewTradeError(core.ErrApplyFailed, "failed to move player", map[string]any{"player_id": m.playerID, "error": err.Error()})
			}
		}
		for _, m := range picks {
			if err := repository.TransferPick(ctx, tx, m.pickID, m.to, m.protection, lc.Now); err != nil {
				return core.NewTradeError(core.ErrApplyFailed, "failed to move pick", map[string]any{"pick_id": m.pickID, "error": err.Error()})
			}
		}
		for _, m := range swaps {
			if err := repository.TransferSwapRight(ctx, tx, m.swapID, m.to, lc.Now); err != nil {
				return core.NewTradeError(core.ErrApplyFailed, "failed to move swap right", map[string]any{"swap_id": m.swapID, "error": err.Error()})
			}
		}
		for _, m := range fixed {
			if err := repository.TransferFixedAsset(ctx, tx, m.assetID, m.to, lc.Now); err != nil {
				return core.NewTradeError(core.ErrApplyFailed, "failed to move fixed asset", map[string]any{"asset_id": m.assetID, "error": err.Error()})
			}
		}

		if err := integrity.ValidateIntegrity(ctx, tx, true); err != nil {
			return core.NewTradeError(core.ErrApplyFailed, "post-trade integrity check failed", map[string]any{"error": err.Error()})
		}

		payload := buildTransactionPayload(d, players, picks, swaps, fixed, source, dealID)

		var dealIDPtr *string
		if dealID != "" {
			dealIDPtr = &dealID
		}
		entry := txlog.Entry{
			TxType: "trade", TxDate: tradeDate, DealID: dealIDPtr, Source: source, Teams: d.teams, Payload: payload,
		}
		if err := txlog.Append(ctx, tx, []txlog.Entry{entry}, lc.Now); err != nil {
			return core.NewTradeError(core.ErrApplyFailed, "failed to append transaction log entry", map[string]any{"error": err.Error()})
		}
		return nil
	})

	if err != nil {
		if _, ok := core.AsTradeError(err); ok {
			return err
		}
		return core.NewTradeError(core.ErrApplyFailed, "trade apply failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// collectMoves derives per-kind moves from the deal's legs, failing on a
// player id appearing in more than one leg (spec §4.9 step 1).
func collectMoves(d *Deal) (players []playerMove, picks []pickMove, swaps []swapMove, fixed []fixedMove, err error) {
	seenPlayers := map[string]bool{}
	for _, from := range d.teams {
		for _, a := range d.legs[from] {
			switch a.kind {
			case KindPlayer:
				if seenPlayers[a.playerID] {
					return nil, nil, nil, nil, core.NewTradeError(core.ErrInvalidInput, "player appears in more than one leg", map[string]any{"player_id": a.playerID})
				}
				seenPlayers[a.playerID] = true
				players = append(players, playerMove{playerID: a.playerID, from: from, to: a.toTeam})
			case KindPick:
				picks = append(picks, pickMove{pickID: a.pickID, to: a.toTeam, protection: a.protection})
			case KindSwap:
				swaps = append(swaps, swapMove{swapID: a.swapID, to: a.toTeam})
			case KindFixedAsset:
				fixed = append(fixed, fixedMove{assetID: a.assetID, to: a.toTeam})
			}
		}
	}
	return players, picks, swaps, fixed, nil
}

// buildTransactionPayload renders the per-team summary spec §4.9 step 7
// calls for, plus a "players" from/to submap that ReturnToTradingTeamRule
// reads back out of the log on a later trade.
func buildTransactionPayload(d *Deal, players []playerMove, picks []pickMove, swaps []swapMove, fixed []fixedMove, source, dealID string) map[string]any {
	playerMoves := make(map[string]any, len(players))
	for _, m := range players {
		playerMoves[m.playerID] = map[string]any{"from": m.from, "to": m.to}
	}

	perTeam := make(map[string]any, len(d.teams))
	for _, t := range d.teams {
		var sentPlayers, sentPicks, sentSwaps, sentFixed []string
		for _, a := range d.legs[t] {
			switch a.kind {
			case KindPlayer:
				sentPlayers = append(sentPlayers, a.playerID)
			case KindPick:
				sentPicks = append(sentPicks, a.pickID)
			case KindSwap:
				sentSwaps = append(sentSwaps, a.swapID)
			case KindFixedAsset:
				sentFixed = append(sentFixed, a.assetID)
			}
		}
		perTeam[t] = map[string]any{
			"sent_players": sentPlayers, "sent_picks": sentPicks, "sent_swaps": sentSwaps, "sent_fixed_assets": sentFixed,
		}
	}

	payload := map[string]any{
		"type":     "trade",
		"source":   source,
		"teams":    d.teams,
		"per_team": perTeam,
		"players":  playerMoves,
	}
	if dealID != "" {
		payload["deal_id"] = dealID
	}

	return payload
}

// ValidateDeal runs the full rules engine (spec §4.7) against d inside its
// own read transaction, after building the per-team salary totals, payrolls,
// and roster sizes every rule needs. Callers run this before
// CreateCommittedDeal (or before an ad hoc ApplyDeal) to surface a
// *core.TradeError instead of discovering a violation mid-apply.
func ValidateDeal(ctx context.Context, lc *leaguectx.Context, dealID string, d *Deal) error {
	return lc.Repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		out, in, err := rules.BuildTeamTradeTotals(ctx, tx, d)
		if err != nil {
			return err
		}
		pre, post, err := rules.BuildTeamPayrolls(ctx, tx, d)
		if err != nil {
			return err
		}
		rosterSizes, err := rules.BuildRosterSizes(ctx, tx, d)
		if err != nil {
			return err
		}

		tctx := &rules.Context{
			Tx: tx, CurrentDate: lc.CurrentDate(), Now: lc.Now, DealID: dealID, TradeRules: lc.TradeRules,
			OutgoingSalary: out, IncomingSalary: in, PrePayroll: pre, PostPayroll: post, RosterSize: rosterSizes,
		}
		return rules.NewEngine().Validate(ctx, d, tctx)
	})
}

// ExecuteDeal wires the rules engine and apply_deal together for a trade
// applied directly (no pre-existing trade_agreements row): validate, then
// apply, in one call.
func ExecuteDeal(ctx context.Context, lc *leaguectx.Context, dealID string, d *Deal, source string) error {
	if err := ValidateDeal(ctx, lc, dealID, d); err != nil {
		return err
	}
	return ApplyDeal(ctx, lc, d, source, dealID, "")
}
