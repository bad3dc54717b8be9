package main

import (
	"fmt"

	"uicheck/internal/report"
	"uicheck/internal/store"

	"github.com/spf13/cobra"
)

var historyFlags struct {
	scenario string
	limit    int
	dbPath   string
	format   string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.scenario, "scenario", "", "Only runs of this scenario")
	f.IntVar(&historyFlags.limit, "limit", 20, "Maximum runs to show (0 = all)")
	f.StringVar(&historyFlags.dbPath, "db", store.DefaultDBPath, "Run history DB path")
	f.StringVar(&historyFlags.format, "report", "ascii", "Table format (ascii, markdown)")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	mode, err := report.ParseMode(historyFlags.format)
	if err != nil {
		return err
	}
	st, err := store.Open(historyFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), historyFlags.scenario, historyFlags.limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(out, report.History(runs, mode))
	if historyFlags.scenario != "" {
		outcomes, err := st.Outcomes(cmd.Context(), historyFlags.scenario, historyFlags.limit)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, report.Stability(historyFlags.scenario, outcomes))
	}
	return nil
}
