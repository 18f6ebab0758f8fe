package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/server"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket gateway, stats RPC and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := SignalContext(context.Background())
		defer cancel()

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		logger.Log.Infof("Database connection successful (%s).", cfg.Database.Driver)

		if migrateOnStart {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
		}

		gameServer := server.NewGameServer(server.Options{
			HTTPAddress:       cfg.Server.HTTPAddress,
			RPCAddress:        cfg.Server.RPCAddress,
			MetricsAddress:    cfg.Server.MetricsAddress,
			AllowedOrigins:    cfg.Server.AllowedOrigins,
			TokenTTL:          cfg.Session.TokenTTL,
			GracePeriod:       cfg.Session.GracePeriod,
			HeartbeatInterval: cfg.Session.HeartbeatInterval,
			ChannelBuffer:     cfg.Session.ChannelBuffer,
			HandSize:          cfg.Game.HandSize,
		}, db)

		logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
		return gameServer.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "create missing tables before serving")
}
