package main

import (
	"github.com/spf13/cobra"

	"clinicapi/internal/db"
)

func migrateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			gormDB, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			if err := db.Migrate(gormDB, reset || cfg.ResetDB, logger); err != nil {
				return err
			}
			logger.Info().Msg("database migrations completed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop all tables before migrating")
	return cmd
}
