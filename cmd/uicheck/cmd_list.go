package main

import (
	"fmt"
	"strings"

	"uicheck/internal/display"
	"uicheck/internal/report"
	"uicheck/internal/scenario/catalog"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in scenarios",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	tb := report.NewTable(report.ASCII)
	tb.Header("Scenario", "Base URL", "Steps", "Actions", "Description")
	for _, name := range catalog.List() {
		sc, err := catalog.Load(name)
		if err != nil {
			return err
		}
		actions := make([]string, len(sc.Steps))
		for i, st := range sc.Steps {
			actions[i] = display.Action(string(st.Action.Kind))
		}
		tb.Row(sc.Name, sc.BaseURL, strings.Join(sc.Labels(), " → "), strings.Join(actions, ", "), report.Truncate(sc.Description, 60))
	}
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())
	return nil
}
