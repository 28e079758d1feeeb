package trade_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/leaguectx"
	"stormlightlabs.org/leaguecore/internal/testutils"
	"stormlightlabs.org/leaguecore/internal/trade"
)

func TestNegotiationStore_ProposeAcceptRoundTrip(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	store := trade.NewNegotiationStore(lc)

	d := playerTradeDeal(t)
	id, err := store.Propose(ctx, "ATL", d)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	n, decoded, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "PROPOSED", n.Status)
	require.Equal(t, "ATL", n.ProposingTeam)
	require.ElementsMatch(t, []string{"ATL", "BOS"}, decoded.Teams())

	require.NoError(t, store.Accept(ctx, id))
	n, _, err = store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "ACCEPTED", n.Status)

	list, err := store.ListForTeam(ctx, "ATL")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestNegotiationStore_Withdraw(t *testing.T) {
	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedTradeFixture(t, repo, now)

	lc := &leaguectx.Context{Repo: repo, Now: now}
	store := trade.NewNegotiationStore(lc)

	d := playerTradeDeal(t)
	id, err := store.Propose(ctx, "BOS", d)
	require.NoError(t, err)

	require.NoError(t, store.Withdraw(ctx, id))
	n, _, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "WITHDRAWN", n.Status)
}
