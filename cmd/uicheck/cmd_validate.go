package main

import (
	"fmt"
	"strings"

	"uicheck/internal/scenario"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario-file...>",
	Short: "Check scenario files without running them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		sc, err := scenario.LoadFromPath(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: invalid\n", path)
			for _, p := range scenario.Problems(err) {
				fmt.Fprintf(out, "  - %s\n", strings.TrimPrefix(p, path+": "))
			}
			continue
		}
		fmt.Fprintf(out, "%s: ok (%s, %d steps: %s)\n", path, sc.Name, len(sc.Steps), strings.Join(sc.Labels(), ", "))
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d scenario files", scenario.ErrInvalid, failed, len(args))
	}
	return nil
}
