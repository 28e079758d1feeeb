package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tealeg/xlsx"

	"stormlightlabs.org/leaguecore/internal/ids"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// rosterSheetColumns is the fixed column order import_roster/export_roster
// read and write. Column order, not header text, is authoritative: header
// row 0 is skipped on read and only written for readability on export.
var rosterSheetColumns = []string{
	"player_id", "name", "position", "age", "height_inches", "weight_lbs", "overall_rating", "team_id", "salary_amount", "status",
}

func cellString(row *xlsx.Row, i int) string {
	if i >= len(row.Cells) {
		return ""
	}
	return row.Cells[i].String()
}

func cellIntPtr(row *xlsx.Row, i int) *int {
	s := cellString(row, i)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// loadRosterSheet reads sheetName (the first sheet when empty) from path and returns
// one Player/RosterEntry pair per data row, skipping the header row.
func loadRosterSheet(path, sheetName string, allowLegacyIDs bool) ([]repository.Player, []repository.RosterEntry, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("import_roster: failed to open %s: %w", path, err)
	}

	var sheet *xlsx.Sheet
	if sheetName == "" {
		if len(file.Sheets) == 0 {
			return nil, nil, fmt.Errorf("import_roster: %s has no sheets", path)
		}
		sheet = file.Sheets[0]
	} else {
		sheet = file.Sheet[sheetName]
		if sheet == nil {
			return nil, nil, fmt.Errorf("import_roster: sheet %q not found in %s", sheetName, path)
		}
	}

	var players []repository.Player
	var entries []repository.RosterEntry
	for i, row := range sheet.Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) == 0 || cellString(row, 0) == "" {
			continue
		}

		playerID, err := ids.NormalizePlayerID(cellString(row, 0), true, allowLegacyIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("import_roster: row %d: %w", i+1, err)
		}
		teamID, err := ids.NormalizeTeamID(cellString(row, 7), false, true)
		if err != nil {
			return nil, nil, fmt.Errorf("import_roster: row %d: %w", i+1, err)
		}

		var salary int64
		if s := cellString(row, 8); s != "" {
			salary, _ = strconv.ParseInt(s, 10, 64)
		}
		status := cellString(row, 9)
		if status == "" {
			status = "active"
		}

		players = append(players, repository.Player{
			PlayerID: playerID, Name: cellString(row, 1), Position: cellString(row, 2),
			Age: cellIntPtr(row, 3), HeightInches: cellIntPtr(row, 4), WeightLbs: cellIntPtr(row, 5), OverallRating: cellIntPtr(row, 6),
		})
		entries = append(entries, repository.RosterEntry{
			PlayerID: playerID, TeamID: teamID, SalaryAmount: salary, Status: status,
		})
	}

	return players, entries, nil
}

// importRoster upserts every row from path into players+roster, creating a
// teams row for any team id not yet known. In "replace" mode every existing roster row for a team appearing in the
// sheet is cleared first, so rows absent from a re-import are dropped
// rather than left stale.
func importRoster(ctx context.Context, repo *repository.Repository, path, sheetName, mode string, allowLegacyIDs bool, now time.Time) (int, error) {
	players, entries, err := loadRosterSheet(path, sheetName, allowLegacyIDs)
	if err != nil {
		return 0, err
	}

	err = repo.Transaction(ctx, true, func(ctx context.Context, tx *repository.Tx) error {
		if err := repository.EnsureFreeAgencyTeamExists(ctx, tx, now); err != nil {
			return err
		}
		ts := now.UTC().Format("2006-01-02T15:04:05Z")
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO teams (team_id, name, division, conference, created_at, updated_at)
				VALUES (?, ?, '', '', ?, ?)
				ON CONFLICT(team_id) DO NOTHING
			`, e.TeamID, e.TeamID, ts, ts); err != nil {
				return fmt.Errorf("import_roster: %w", err)
			}
		}
		if mode == "replace" {
			teams := map[string]bool{}
			for _, e := range entries {
				teams[e.TeamID] = true
			}
			for t := range teams {
				if err := repository.ClearTeamRoster(ctx, tx, t); err != nil {
					return err
				}
			}
		}
		if err := repository.UpsertPlayers(ctx, tx, players, now); err != nil {
			return err
		}
		for _, e := range entries {
			if err := repository.UpsertRoster(ctx, tx, e, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// exportRoster writes every roster row across every known team to path, one
// row per player, sorted by team then player id.
func exportRoster(ctx context.Context, repo *repository.Repository, path string) (int, error) {
	teams, err := repository.ListTeams(ctx, repo.DB())
	if err != nil {
		return 0, fmt.Errorf("export_roster: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Roster")
	if err != nil {
		return 0, fmt.Errorf("export_roster: %w", err)
	}

	header := sheet.AddRow()
	for _, c := range rosterSheetColumns {
		header.AddCell().SetString(c)
	}

	count := 0
	for _, team := range teams {
		entries, err := repository.GetTeamRoster(ctx, repo.DB(), team.TeamID)
		if err != nil {
			return 0, fmt.Errorf("export_roster: %w", err)
		}
		for _, e := range entries {
			player, err := repository.GetPlayer(ctx, repo.DB(), e.PlayerID)
			if err != nil {
				return 0, fmt.Errorf("export_roster: %w", err)
			}
			row := sheet.AddRow()
			row.AddCell().SetString(player.PlayerID)
			row.AddCell().SetString(player.Name)
			row.AddCell().SetString(player.Position)
			addOptionalInt(row, player.Age)
			addOptionalInt(row, player.HeightInches)
			addOptionalInt(row, player.WeightLbs)
			addOptionalInt(row, player.OverallRating)
			row.AddCell().SetString(e.TeamID)
			row.AddCell().SetInt64(e.SalaryAmount)
			row.AddCell().SetString(e.Status)
			count++
		}
	}

	if err := file.Save(path); err != nil {
		return 0, fmt.Errorf("export_roster: failed to save %s: %w", path, err)
	}
	return count, nil
}

func addOptionalInt(row *xlsx.Row, v *int) {
	cell := row.AddCell()
	if v != nil {
		cell.SetInt(*v)
	}
}
