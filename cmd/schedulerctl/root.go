package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/anonsched/scheduler/internal/config"
	"github.com/anonsched/scheduler/internal/repository"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedulerctl",
		Short: "Maintenance commands for the meeting scheduler",
		Long: `schedulerctl manages a scheduler deployment from the command line.

It reads the same environment (and .env file) as the API server.`,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(`{{printf "schedulerctl version %s\n" .Version}}`)

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newBootstrapCmd())
	cmd.AddCommand(newCheckWindowCmd())

	return cmd
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// openRepository loads config and connects to PostgreSQL.
func openRepository(ctx context.Context) (*config.Config, *repository.Repository, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, repo, nil
}
