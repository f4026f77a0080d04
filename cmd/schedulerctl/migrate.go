package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			applied, err := repo.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			return printVersions(cmd, "applied", applied)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()

			reverted, err := repo.MigrateDown(cmd.Context(), steps)
			if err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			return printVersions(cmd, "reverted", reverted)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")
	cmd.AddCommand(down)

	return cmd
}

func printVersions(cmd *cobra.Command, verb string, versions []string) error {
	out := cmd.OutOrStdout()
	if len(versions) == 0 {
		_, err := fmt.Fprintln(out, "nothing to do")
		return err
	}
	for _, v := range versions {
		if _, err := fmt.Fprintf(out, "%s %s\n", verb, v); err != nil {
			return err
		}
	}
	return nil
}
