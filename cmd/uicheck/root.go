// uicheck drives a browser through UI verification scenarios and leaves a
// screenshot per checkpoint.
//
// Usage:
//
//	uicheck run [scenario-file...] [--scenario=picking-list] [--base-url=URL] [--out=verification]
//	uicheck validate <scenario-file...>
//	uicheck list
//	uicheck history [--scenario=NAME] [--limit=N]
//	uicheck serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"uicheck/internal/logging"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "uicheck",
	Short: "Scripted UI verification against a running web application",
	Long: `uicheck runs ordered UI scenarios (navigate, upload, click) in Chrome,
waits for each step's visible post-conditions and saves a screenshot at
every checkpoint. It exits non-zero on the first unmet condition.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func initLogging(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(rootFlags.logLevel)
	if err != nil {
		return err
	}
	switch rootFlags.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (text, json)", rootFlags.logFormat)
	}
	logging.Init(level, rootFlags.logFormat, cmd.ErrOrStderr())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
