package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultStatsDays = 30

func newStatsCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print archive totals, a per-year chart and recent daily activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			mgr, err := openManager(false)
			if err != nil {
				return err
			}
			defer closeManager(mgr)

			stats, err := mgr.Stats(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderStats(stats, days))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", defaultStatsDays, "number of recent days in the daily sparkline")

	return cmd
}
