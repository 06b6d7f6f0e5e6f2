package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/habitgrid/internal/service"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print streaks and completion rates for displayed habits",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			day := a.repo.Today()
			if asOf != "" {
				day, err = service.ParseDate(asOf, day.Location())
				if err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HABIT\tSTATUS\tCURRENT\tLONGEST\tMONTH\tWEEK\tTOTAL")
			for _, habit := range a.repo.ListActiveDisplayHabits() {
				stats, err := a.repo.StreaksFor(habit.ID, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d%%\t%d/%d\t%d\n",
					habit.Name, habit.Status,
					stats.CurrentStreak, stats.LongestStreak, stats.MonthRate,
					stats.WeekCompleted, stats.WeekTarget, stats.TotalCompletions)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate as of this date (YYYY-MM-DD, default today)")
	return cmd
}
