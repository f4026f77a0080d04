package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anonsched/scheduler/internal/cache"
	"github.com/anonsched/scheduler/internal/service"
)

func newBootstrapCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Set the one-time admin token",
		Long: `Bootstrap the admin token using ADMIN_SETUP_TOKEN from the environment.

A random token is generated unless --token is given. The plaintext token is
printed once and only its hash is stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, repo, err := openRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			if cfg.AdminSetupToken == "" {
				return errors.New("ADMIN_SETUP_TOKEN is not set")
			}

			settingsCache, err := cache.New(ctx, cfg.RedisURL, cache.WithPoolSize(2))
			if err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer settingsCache.Close()

			svc := service.NewSettingsService(repo, settingsCache, cfg.AdminSetupToken, newLogger())
			res, err := svc.Bootstrap(ctx, cfg.AdminSetupToken, token)
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "admin token: %s\nstore it now, it cannot be shown again\n", res.AdminToken)
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "admin token to set instead of a generated one")

	return cmd
}
