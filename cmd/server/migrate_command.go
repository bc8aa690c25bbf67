package main

import (
	"fmt"

	"github.com/kiranshivaraju/autoshow/internal/config"
	"github.com/kiranshivaraju/autoshow/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCommand(migrationsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if err := store.RunMigrations(cfg.Database.URL, *migrationsDir); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			// SQLite databases carry their schema in the store itself.
			st, err := store.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer st.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date")
			return nil
		},
	}
}
