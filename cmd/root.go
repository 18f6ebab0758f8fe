package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/wfunc/cardroom/config"
	"github.com/wfunc/cardroom/logger"
	"github.com/wfunc/cardroom/persistence"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cardroom",
	Short: "Room-based elemental card game server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err == nil {
			fmt.Fprintln(os.Stderr, "Loaded .env")
		}
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logger.Init(cfg.Log.Level, cfg.Log.Encoding)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, $HOME/config.yaml or /etc/cardroom/config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDatabase() (persistence.Database, error) {
	pg := cfg.Database.Postgres
	return persistence.Open(cfg.Database.Driver, persistence.PostgresOptions{
		Host:     pg.Host,
		Port:     pg.Port,
		User:     pg.User,
		Password: pg.Password,
		DBName:   pg.DBName,
	}, cfg.Database.SQLite.Path)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
