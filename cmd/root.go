// Package cmd implements the property-hunter command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"property-hunter/config"
	"property-hunter/services"
	"property-hunter/storage"
	"property-hunter/utils"
)

var (
	// Debug forces debug-level logging for every command.
	Debug bool

	rootCmd = &cobra.Command{
		Use:           "property-hunter",
		Short:         "Real-estate listing ingest, search and alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(ingestCommand())
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(notifyCommand())
	rootCmd.AddCommand(parseCommand())
	rootCmd.AddCommand(nearbyCommand())
	rootCmd.AddCommand(searchesCommand())
}

// app is the shared state every command starts from.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
	ref    *services.ReferenceData
}

func newApp() (*app, error) {
	cfg := config.Load()

	level := cfg.LogLevel
	if Debug {
		level = "debug"
	}
	logger, err := utils.NewLogger(cfg.AppEnv, level)
	if err != nil {
		return nil, err
	}

	ref, err := services.LoadReferenceData(services.ReferenceOptions{
		SuburbsPath:  cfg.SuburbsPath,
		ProfilesPath: cfg.SuburbProfilesPath,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	return &app{cfg: cfg, logger: logger, ref: ref}, nil
}

func (a *app) openStore(ctx context.Context) (*storage.PostgresStore, error) {
	store, err := storage.NewPostgresStore(ctx, a.cfg.DSN())
	if err != nil {
		a.logger.Error("Failed to connect to PostgreSQL: %v", err)
		a.logger.Error("Make sure Docker is running: docker compose up -d")
		return nil, err
	}
	return store, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
