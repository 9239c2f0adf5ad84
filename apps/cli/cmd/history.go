package cmd

import (
	"fmt"
	"time"

	"github.com/Praveenashok395/restspec/packages/core/config"
	"github.com/Praveenashok395/restspec/packages/history"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag  int
	historyStatsFlag  bool
	historyConfigFlag string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs from the history database",
	Long: `Show past runs recorded by 'restspec run', or per-scenario pass
rates with --stats.

Examples:
  restspec history
  restspec history --limit 5
  restspec history --stats`,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 10, "How many rows to show")
	historyCmd.Flags().BoolVar(&historyStatsFlag, "stats", false, "Show per-scenario pass rates instead of runs")
	historyCmd.Flags().StringVar(&historyConfigFlag, "config", "", "Path to config file")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(historyConfigFlag)
	if err != nil {
		return err
	}
	path := cfg.HistoryPath
	if path == "" {
		path = history.DefaultPath
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if historyStatsFlag {
		stats, err := store.ScenarioStats(historyLimitFlag)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %6s %8s %10s\n", "SCENARIO", "RUNS", "PASS%", "AVG MS")
		for _, st := range stats {
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %6d %7.1f%% %10.0f\n",
				st.Name, st.Runs, st.PassRate*100, st.AvgDurationMs)
		}
		return nil
	}

	runs, err := store.RecentRuns(historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history recorded yet.")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-5s %-20s %-10s %7s %7s %8s %8s %8s\n",
		"ID", "STARTED", "ENV", "PASSED", "FAILED", "SKIPPED", "ERRORED", "MS")
	for _, r := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%-5d %-20s %-10s %7d %7d %8d %8d %8d\n",
			r.ID, r.StartedAt.Format(time.DateTime), r.Environment,
			r.Passed, r.Failed, r.Skipped, r.Errored, r.DurationMs)
	}
	return nil
}
