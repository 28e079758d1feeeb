// Package cmd implements League Core's CLI surface (spec §6): init,
// import_roster, export_roster, and validate, all operating on a single
// SQLite file named with --db.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"stormlightlabs.org/leaguecore/internal/echo"
	"stormlightlabs.org/leaguecore/internal/integrity"
	"stormlightlabs.org/leaguecore/internal/repository"
)

// InitCmd creates the schema at --db and exits.
func InitCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the League Core database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, dbPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file")
	cmd.MarkFlagRequired("db")
	return cmd
}

func runInit(cmd *cobra.Command, dbPath string) error {
	echo.Header("League Core: init")
	repo, err := repository.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer repo.Close()

	echo.Successf("✓ schema ready at %s", dbPath)
	return nil
}

// ValidateCmd runs validate_integrity against --db.
func ValidateCmd() *cobra.Command {
	var dbPath string
	var allowLegacyIDs bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate cross-table invariants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, dbPath, allowLegacyIDs)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file")
	cmd.Flags().BoolVar(&allowLegacyIDs, "allow-legacy-ids", false, "Accept legacy numeric player ids during validation")
	cmd.MarkFlagRequired("db")
	return cmd
}

func runValidate(cmd *cobra.Command, dbPath string, allowLegacyIDs bool) error {
	echo.Header("League Core: validate")
	repo, err := repository.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}
	defer repo.Close()

	ctx := cmd.Context()
	err = repo.Transaction(ctx, false, func(ctx context.Context, tx *repository.Tx) error {
		return integrity.ValidateIntegrity(ctx, tx, !allowLegacyIDs)
	})
	if err != nil {
		return fmt.Errorf("error: %w", err)
	}

	echo.Success("✓ integrity check passed")
	return nil
}
