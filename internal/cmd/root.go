// Package cmd implements the taskplan CLI.
package cmd

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskplan/internal/config"
	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/notify"
	"github.com/felixgeelhaar/taskplan/internal/planner"
	"github.com/felixgeelhaar/taskplan/internal/repo"
	"github.com/felixgeelhaar/taskplan/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "taskplan",
	Short: "Hierarchical task planning service",
	Long: `taskplan manages plans that own trees of tasks. Completing the last
outstanding child of a parent task completes the parent automatically, all
the way up the tree.

It serves the same planning core over MCP (stdio), HTTP, and this CLI.`,
	SilenceUsage: true,
}

var cfgFile string

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a cancellation context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./taskplan.yaml)")
}

// app bundles the wired application for a command invocation.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	service *planner.Service
	cleanup func()
}

// buildApp loads configuration and wires store, repository and planner.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logCfg := log.DefaultConfig()
	logCfg.Level = log.ParseLevel(cfg.Log.Level)
	logCfg.Format = log.ParseFormat(cfg.Log.Format)
	logger := log.New(logCfg)
	log.SetDefaultLogger(logger)

	var (
		st      store.Store
		cleanup = func() {}
	)
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgresStore(pool, logger)
		if err := pg.Init(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		st = pg
		cleanup = pool.Close
	default:
		st = store.NewFileStore(cfg.Storage.File.Path, logger)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Webhook.URL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Webhook.URL)
	}

	service := planner.NewService(repo.New(st, notifier, logger), logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		service: service,
		cleanup: cleanup,
	}, nil
}
