package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/bitter-server/internal/config"
	"github.com/vovakirdan/bitter-server/internal/store/sqlite"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, config.Config{DatabasePath: dbPath})
			if err != nil {
				return err
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.DatabasePath, err)
			}
			if err := st.Close(); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema applied to %s\n", cfg.DatabasePath)
			return err
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")

	return cmd
}
