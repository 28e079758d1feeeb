package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stormlightlabs.org/leaguecore/internal/echo"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// ImportRosterCmd loads a roster workbook into --db, creating or updating
// players and roster rows.
func ImportRosterCmd() *cobra.Command {
	var dbPath, excelPath, sheet, mode string
	var allowLegacyIDs bool
	cmd := &cobra.Command{
		Use:   "import_roster",
		Short: "Import players and roster assignments from an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportRoster(cmd, dbPath, excelPath, sheet, mode, allowLegacyIDs)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file")
	cmd.Flags().StringVar(&excelPath, "excel", "", "Path to the roster .xlsx workbook")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet name to read (default: first sheet)")
	cmd.Flags().StringVar(&mode, "mode", "upsert", "Import mode: upsert or replace")
	cmd.Flags().BoolVar(&allowLegacyIDs, "allow-legacy-ids", false, "Accept legacy numeric player ids")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("excel")
	return cmd
}

func runImportRoster(cmd *cobra.Command, dbPath, excelPath, sheet, mode string, allowLegacyIDs bool) error {
	if mode != "upsert" && mode != "replace" {
		return fmt.Errorf("error: --mode must be \"upsert\" or \"replace\", got %q", mode)
	}

	echo.Header("League Core: import_roster")
	repo, err := repository.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer repo.Close()

	n, err := importRoster(cmd.Context(), repo, excelPath, sheet, mode, allowLegacyIDs, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Successf("✓ imported %d roster rows from %s", n, excelPath)
	return nil
}

// ExportRosterCmd writes the full roster from --db to an Excel workbook.
func ExportRosterCmd() *cobra.Command {
	var dbPath, excelPath string
	cmd := &cobra.Command{
		Use:   "export_roster",
		Short: "Export players and roster assignments to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExportRoster(cmd, dbPath, excelPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file")
	cmd.Flags().StringVar(&excelPath, "excel", "", "Path to write the .xlsx workbook")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("excel")
	return cmd
}

func runExportRoster(cmd *cobra.Command, dbPath, excelPath string) error {
	echo.Header("League Core: export_roster")
	repo, err := repository.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer repo.Close()

	n, err := exportRoster(cmd.Context(), repo, excelPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Successf("✓ exported %d roster rows to %s", n, excelPath)
	return nil
}
