package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/scheduling"
)

func newCheckWindowCmd() *cobra.Command {
	var (
		windows []string
		at      string
		share   bool
	)

	cmd := &cobra.Command{
		Use:   "check-window",
		Short: "Check an instant against a set of weekly availability windows",
		Long: `Normalize weekly availability windows and report whether an instant falls
inside them. Windows are given as DAY,START,END with DAY 0 (Sunday) to 6 and
times as HH:MM in UTC.

  schedulerctl check-window --window 1,09:00,17:00 --at 2026-03-02T10:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseWindowFlags(windows)
			if err != nil {
				return err
			}

			instant, err := scheduling.ParseInstant(at)
			if err != nil {
				return fmt.Errorf("invalid --at: %w", err)
			}

			res := scheduling.NormalizeWindows(inputs)
			out := cmd.OutOrStdout()
			for _, rej := range res.Rejected {
				fmt.Fprintf(out, "dropped window %d (%s)\n", rej.Index, rej.Reason)
			}

			profile := model.AvailabilityProfile{ShareAvailability: share, Windows: res.Valid}
			fmt.Fprintf(out, "instant: %s (%s)\n", instant.Format("2006-01-02T15:04:05Z07:00"), instant.Weekday())
			_, err = fmt.Fprintf(out, "available: %t\n", scheduling.IsWithinAvailability(profile, instant))
			return err
		},
	}

	cmd.Flags().StringArrayVar(&windows, "window", nil, "availability window as DAY,START,END (repeatable)")
	cmd.Flags().StringVar(&at, "at", "", "instant to check, RFC 3339")
	cmd.Flags().BoolVar(&share, "share", true, "whether the user shares availability")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func parseWindowFlags(raw []string) ([]scheduling.WindowInput, error) {
	inputs := make([]scheduling.WindowInput, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid --window %q: want DAY,START,END", r)
		}
		day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid --window %q: day must be a number", r)
		}
		inputs = append(inputs, scheduling.WindowInput{
			DayOfWeek: day,
			StartTime: parts[1],
			EndTime:   parts[2],
		})
	}
	return inputs, nil
}
