package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/cookgpt-backend/internal/app"
	"github.com/yungbote/cookgpt-backend/internal/data/db"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

func newRootCmd() *cobra.Command {
	var logMode string
	cmd := &cobra.Command{
		Use:           "cookgpt",
		Short:         "CookGPT cooking assistant backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logMode, "log-mode", envOr("LOG_MODE", "development"), "logger mode (development|production)")

	newLogger := func() (*logger.Logger, error) {
		log, err := logger.New(logMode)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		return log, nil
	}
	cmd.AddCommand(newServeCmd(newLogger), newWorkerCmd(newLogger), newMigrateCmd(newLogger))
	return cmd
}

type loggerFactory func() (*logger.Logger, error)

func newServeCmd(newLogger loggerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), newLogger, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newWorkerCmd(newLogger loggerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the Temporal worker that generates responses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApp(cmd.Context(), newLogger, func(ctx context.Context, a *app.App) error {
				return a.RunWorker(ctx)
			})
		},
	}
}

func newMigrateCmd(newLogger loggerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()
			pg, err := db.NewPostgresService(log)
			if err != nil {
				return err
			}
			defer pg.Close()
			return pg.AutoMigrateAll()
		},
	}
}

func runApp(parent context.Context, newLogger loggerFactory, run func(context.Context, *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, log)
	if err != nil {
		log.Error("Startup failed", "error", err)
		log.Sync()
		return err
	}
	defer a.Close()
	if err := run(ctx, a); err != nil && ctx.Err() == nil {
		log.Error("Exited with error", "error", err)
		return err
	}
	log.Info("Shut down cleanly")
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
