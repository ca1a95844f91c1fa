package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Apply pending schema migrations to the database.

Migrations are idempotent, so running this against an existing database
created by an earlier version adopts it without touching the rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.openRepository()
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			if err := repo.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", a.cfg.SQLiteDBPath)
			return nil
		},
	}
}
