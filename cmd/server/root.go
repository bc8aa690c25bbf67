package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var migrationsDir string

	rootCmd := &cobra.Command{
		Use:           "autoshow",
		Short:         "AutoShow content pipeline server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), migrationsDir)
		},
	}

	rootCmd.PersistentFlags().StringVar(&migrationsDir, "migrations", "migrations", "Directory holding the Postgres migrations")

	rootCmd.AddCommand(newServeCommand(&migrationsDir))
	rootCmd.AddCommand(newMigrateCommand(&migrationsDir))
	rootCmd.AddCommand(newKeysCommand())

	return rootCmd
}

func newServeCommand(migrationsDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and pipeline workers (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), *migrationsDir)
		},
	}
}
