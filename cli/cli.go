// TODO: refactor [RootCmd] to be a func
package main

import (
	"github.com/spf13/cobra"
	"stormlightlabs.org/leaguecore/cmd"
	"stormlightlabs.org/leaguecore/internal/echo"
)

// RootCmd is the root command for the League Core CLI.
var RootCmd = &cobra.Command{
	Use:   "leaguecore",
	Short: "League Core trade, contract, and schedule engine",
	Long: echo.HeaderStyle().Render("League Core") + "\n\n" +
		"A SQLite-backed engine for league rosters, contracts, trades, and schedules.",
}

func init() {
	RootCmd.AddCommand(cmd.InitCmd())
	RootCmd.AddCommand(cmd.ImportRosterCmd())
	RootCmd.AddCommand(cmd.ExportRosterCmd())
	RootCmd.AddCommand(cmd.ValidateCmd())
}
