package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/wfunc/cardroom/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Log.Infof("Schema migrated (%s).", cfg.Database.Driver)
		return nil
	},
}
