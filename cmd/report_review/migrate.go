package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL schema for run persistence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("--db-url or DATABASE_URL is required")
			}
			database, err := openStore(cmd.Context(), databaseURL)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			database.Close()
			_, _ = fmt.Fprintln(a.stdout, "Database schema is up to date")
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	return cmd
}
