package trade_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stormlightlabs.org/leaguecore/internal/trade"
)

func TestParseDeal_BilateralDefaultsToTeam(t *testing.T) {
	raw := []byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002"}]
		},
		"draft_year": 2025
	}`)

	d, err := trade.ParseDeal(raw)
	require.NoError(t, err)

	atlAssets := d.AssetsForTeam("ATL")
	require.Len(t, atlAssets, 1)
	require.Equal(t, "BOS", atlAssets[0].ToTeam())

	bosAssets := d.AssetsForTeam("BOS")
	require.Len(t, bosAssets, 1)
	require.Equal(t, "ATL", bosAssets[0].ToTeam())
}

func TestParseDeal_MultiTeamRequiresToTeam(t *testing.T) {
	raw := []byte(`{
		"teams": ["ATL", "BOS", "LAL"],
		"legs": {
			"ATL": [{"kind": "player", "player_id": "P000001"}],
			"BOS": [{"kind": "player", "player_id": "P000002", "to_team": "LAL"}],
			"LAL": [{"kind": "player", "player_id": "P000003", "to_team": "ATL"}]
		},
		"draft_year": 2025
	}`)

	_, err := trade.ParseDeal(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MISSING_TO_TEAM")
}

func TestParseDeal_RejectsNonCanonicalSwapID(t *testing.T) {
	raw := []byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "swap", "swap_pick_a": "2026_R1_ATL", "swap_pick_b": "2026_R1_BOS", "swap_id": "SWAP_bogus"}],
			"BOS": []
		},
		"draft_year": 2025
	}`)

	_, err := trade.ParseDeal(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SWAP_INVALID")
}

func TestParseDeal_RejectsInvalidProtection(t *testing.T) {
	raw := []byte(`{
		"teams": ["ATL", "BOS"],
		"legs": {
			"ATL": [{"kind": "pick", "pick_id": "2026_R1_ATL", "protection": {"type": "BOGUS", "n": 5, "compensation": 1}}],
			"BOS": []
		},
		"draft_year": 2025
	}`)

	_, err := trade.ParseDeal(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PROTECTION_INVALID")
}

func TestCanonicalizeDeal_SortsTeamsAndAssetsDeterministically(t *testing.T) {
	raw := []byte(`{
		"teams": ["BOS", "ATL"],
		"legs": {
			"BOS": [{"kind": "player", "player_id": "P000002", "to_team": "ATL"}],
			"ATL": [
				{"kind": "pick", "pick_id": "2026_R1_ATL", "to_team": "BOS"},
				{"kind": "player", "player_id": "P000001", "to_team": "BOS"}
			]
		},
		"draft_year": 2025
	}`)

	d, err := trade.ParseDeal(raw)
	require.NoError(t, err)

	canon := trade.CanonicalizeDeal(d)
	teams, ok := canon["teams"].([]string)
	require.True(t, ok)
	require.Equal(t, []string{"ATL", "BOS"}, teams)

	atlLegs, ok := canon["legs"].(map[string]any)["ATL"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, atlLegs, 2)
	require.Equal(t, "player", atlLegs[0]["kind"], "player (variant_rank 0) sorts before pick (variant_rank 1)")
	require.Equal(t, "pick", atlLegs[1]["kind"])

	raw2, err := trade.CanonicalDealJSON(d)
	require.NoError(t, err)
	raw3, err := trade.CanonicalDealJSON(d)
	require.NoError(t, err)
	require.Equal(t, raw2, raw3, "canonical JSON must be stable across calls")
}
