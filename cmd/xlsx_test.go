package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/repository"
	"stormlightlabs.org/leaguecore/internal/testutils"
)

func writeRosterWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Roster")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, c := range rosterSheetColumns {
		header.AddCell().SetString(c)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, file.Save(path))
}

func TestImportRoster_UpsertCreatesPlayersAndRoster(t *testing.T) {
	ids.RegisterTeam("ATL")
	t.Cleanup(ids.ResetKnownTeams)

	repo := testutils.NewTestRepository(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	writeRosterWorkbook(t, path, [][]string{
		{"P000001", "Test Guard", "G", "25", "75", "190", "80", "ATL", "1000000", "active"},
	})

	n, err := importRoster(ctx, repo, path, "Roster", "upsert", false, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	entries, err := repository.GetTeamRoster(ctx, repo.DB(), "ATL")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "P000001", entries[0].PlayerID)
	require.Equal(t, int64(1000000), entries[0].SalaryAmount)

	player, err := repository.GetPlayer(ctx, repo.DB(), "P000001")
	require.NoError(t, err)
	require.Equal(t, "Test Guard", player.Name)
}

func TestImportRoster_ReplaceModeDropsMissingRows(t *testing.T) {
	ids.RegisterTeam("ATL")
	t.Cleanup(ids.ResetKnownTeams)

	repo := testutils.NewTestRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := filepath.Join(t.TempDir(), "first.xlsx")
	writeRosterWorkbook(t, first, [][]string{
		{"P000001", "Guard One", "G", "", "", "", "", "ATL", "1000000", "active"},
		{"P000002", "Forward Two", "F", "", "", "", "", "ATL", "2000000", "active"},
	})
	_, err := importRoster(ctx, repo, first, "Roster", "upsert", false, now)
	require.NoError(t, err)

	second := filepath.Join(t.TempDir(), "second.xlsx")
	writeRosterWorkbook(t, second, [][]string{
		{"P000001", "Guard One", "G", "", "", "", "", "ATL", "1100000", "active"},
	})
	_, err = importRoster(ctx, repo, second, "Roster", "replace", false, now)
	require.NoError(t, err)

	entries, err := repository.GetTeamRoster(ctx, repo.DB(), "ATL")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "P000001", entries[0].PlayerID)
}

func TestExportRoster_RoundTripsImportedData(t *testing.T) {
	ids.RegisterTeam("ATL")
	t.Cleanup(ids.ResetKnownTeams)

	repo := testutils.NewTestRepository(t)
	ctx := context.Background()

	in := filepath.Join(t.TempDir(), "in.xlsx")
	writeRosterWorkbook(t, in, [][]string{
		{"P000001", "Guard One", "G", "25", "", "", "", "ATL", "1000000", "active"},
	})
	_, err := importRoster(ctx, repo, in, "Roster", "upsert", false, time.Now().UTC())
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.xlsx")
	n, err := exportRoster(ctx, repo, out)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	file, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	sheet := file.Sheet["Roster"]
	require.NotNil(t, sheet)
	require.Len(t, sheet.Rows, 2) // header + 1 data row
	require.Equal(t, "P000001", sheet.Rows[1].Cells[0].String())
	require.Equal(t, "ATL", sheet.Rows[1].Cells[7].String())
}
