package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"townhall/config"
	"townhall/internal/repository/postgres"
)

func seedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Execute the seed SQL file against the database",
		Long: `Execute a SQL script in one transaction.

The script defaults to db.seed_path (TOWNHALL_DB_SEED_PATH).

Examples:
  townhall seed
  townhall seed --file ./testdata/seed.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.DB.SeedPath
			}
			if path == "" {
				return fmt.Errorf("no seed file: set db.seed_path or pass --file")
			}
			script, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}

			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.DB.URL, 1)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.ExecScript(ctx, db, string(script)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded from %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "SQL file to execute (default db.seed_path)")
	return cmd
}
